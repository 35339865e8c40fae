package cpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hfi-sidecar/engine/pkg/hostapi/hostapitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respondWith(status int, body string) http.Response {
	return http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFetch_SuccessReturnsBody(t *testing.T) {
	fake := hostapitest.New(time.Now())
	resp := respondWith(200, `{"policies": []}`)
	fake.DispatchResponses = []hostapitest.DispatchResult{{Response: &resp}}

	c := New(fake, "")
	body, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"policies": []}`, string(body))
}

func TestFetch_5xxClassifiedTransport(t *testing.T) {
	fake := hostapitest.New(time.Now())
	resp := respondWith(503, "")
	fake.DispatchResponses = []hostapitest.DispatchResult{{Response: &resp}}

	c := New(fake, "")
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFetchTransport)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.Status)
}

func TestFetch_4xxClassifiedRejected(t *testing.T) {
	fake := hostapitest.New(time.Now())
	resp := respondWith(404, "")
	fake.DispatchResponses = []hostapitest.DispatchResult{{Response: &resp}}

	c := New(fake, "")
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFetchRejected)
}

func TestFetch_DispatchErrorClassifiedTransport(t *testing.T) {
	fake := hostapitest.New(time.Now())
	fake.DispatchResponses = []hostapitest.DispatchResult{{Err: errors.New("dial tcp: connection refused")}}

	c := New(fake, "")
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFetchTransport)
}

func TestNew_DefaultsAuthority(t *testing.T) {
	fake := hostapitest.New(time.Now())
	c := New(fake, "")
	assert.Equal(t, DefaultAuthority, c.authority)
}
