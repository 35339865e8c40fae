// Package delaytracker maps host-assigned delayed-fault tokens to the
// request they belong to, so a scheduled host callback can find its way
// back to the right in-flight request. Cancellation here is observational
// only: the Delay Tracker just frees its own entry, it never reaches into
// the host to cancel the underlying timer.
package delaytracker
