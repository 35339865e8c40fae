package delaytracker

import (
	"sync"

	"github.com/google/uuid"
)

// Token identifies one scheduled delayed-fault callback.
type Token string

// NewToken mints a fresh, unguessable token for a newly-scheduled delay.
func NewToken() Token {
	return Token(uuid.NewString())
}

// Tracker is a concurrency-safe token -> request-id registry. The zero
// value is ready to use.
type Tracker struct {
	mu      sync.RWMutex
	entries map[Token]string
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[Token]string)}
}

// Add registers a token for the given request id, minting and returning a
// fresh token.
func (t *Tracker) Add(requestID string) Token {
	token := NewToken()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[Token]string)
	}
	t.entries[token] = requestID
	return token
}

// Remove deletes a token's entry, typically called when the host's
// scheduled callback fires. It is a no-op if the token is unknown (already
// removed, or never existed).
func (t *Tracker) Remove(token Token) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, token)
}

// Cancel frees a token's entry before its callback fires. It reports
// whether the token was present — cancellation here is observational
// only; the host remains the source of truth for whether the underlying
// timer actually stops.
func (t *Tracker) Cancel(token Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[token]; !ok {
		return false
	}
	delete(t.entries, token)
	return true
}

// Lookup returns the request id registered for a token, if any.
func (t *Tracker) Lookup(token Token) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.entries[token]
	return id, ok
}

// Count returns the number of in-flight tracked tokens.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
