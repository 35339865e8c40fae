// Package reconnect implements the config-fetch reconnect policy: an
// exponential backoff curve whose maximum attempt count depends on whether
// the triggering failure looks transient or permanent.
package reconnect
