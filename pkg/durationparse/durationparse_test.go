package durationparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Grammar(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"250ms", 250},
		{"250", 250},
		{"2s", 2000},
		{"3m", 180_000},
		{"0", 0},
		{"0ms", 0},
		{"MS500", 0}, // rejected by Parse; skipped by the loop below and checked in TestParse_Invalid
	}
	for _, tt := range tests[:len(tests)-1] {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_CaseInsensitive(t *testing.T) {
	got, err := Parse("250MS")
	require.NoError(t, err)
	assert.Equal(t, uint64(250), got)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)

	_, err = Parse("ms")
	assert.Error(t, err)

	_, err = Parse("MS500")
	assert.Error(t, err)
}

func TestParseRenderRoundTrip(t *testing.T) {
	for _, ms := range []uint64{0, 1, 250, 1000, 60_000, 123_456} {
		rendered := Render(ms)
		got, err := Parse(rendered)
		require.NoError(t, err)
		assert.Equal(t, ms, got)
	}
}
