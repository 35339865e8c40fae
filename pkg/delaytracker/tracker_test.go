package delaytracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_AddLookupRemove(t *testing.T) {
	tr := New()
	token := tr.Add("req-1")
	assert.Equal(t, 1, tr.Count())

	id, ok := tr.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "req-1", id)

	tr.Remove(token)
	assert.Equal(t, 0, tr.Count())
	_, ok = tr.Lookup(token)
	assert.False(t, ok)
}

func TestTracker_Cancel(t *testing.T) {
	tr := New()
	token := tr.Add("req-1")

	assert.True(t, tr.Cancel(token))
	assert.Equal(t, 0, tr.Count())
	assert.False(t, tr.Cancel(token), "canceling an already-removed token reports false")
}

func TestTracker_RemoveUnknownTokenIsNoop(t *testing.T) {
	tr := New()
	tr.Remove(Token("never-added"))
	assert.Equal(t, 0, tr.Count())
}

func TestTracker_TokensAreDistinct(t *testing.T) {
	tr := New()
	a := tr.Add("req-a")
	b := tr.Add("req-b")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, tr.Count())
}

func TestTracker_ZeroValueIsUsable(t *testing.T) {
	var tr Tracker
	token := tr.Add("req-1")
	id, ok := tr.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "req-1", id)
}
