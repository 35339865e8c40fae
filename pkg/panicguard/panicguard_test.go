package panicguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingHost is a minimal HostLogger spy for asserting Guard reaches
// the host channel, not just the local *slog.Logger.
type recordingHost struct {
	calls []string
}

func (h *recordingHost) LogCritical(op, msg string) {
	h.calls = append(h.calls, op+": "+msg)
}

func TestGuard_PassesThroughOrdinaryError(t *testing.T) {
	wanted := errors.New("boom")
	err := Guard("test-op", nil, nil, func() error { return wanted })
	assert.Equal(t, wanted, err)
}

func TestGuard_PassesThroughSuccess(t *testing.T) {
	err := Guard("test-op", nil, nil, func() error { return nil })
	assert.NoError(t, err)
}

func TestGuard_RecoversPanic(t *testing.T) {
	err := Guard("test-op", nil, nil, func() error {
		var m map[string]int
		m["x"] = 1 // nil map write panics
		return nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "test-op")
}

func TestGuard_RecoversPanic_NilHostLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Guard("test-op", nil, nil, func() error {
			panic("boom")
		})
	})
}

func TestGuard_RecoversPanic_NotifiesHostLogger(t *testing.T) {
	host := &recordingHost{}
	err := Guard("test-op", nil, host, func() error {
		panic("boom")
	})
	assert.Error(t, err)
	if assert.Len(t, host.calls, 1) {
		assert.Contains(t, host.calls[0], "test-op")
		assert.Contains(t, host.calls[0], "boom")
	}
}
