package ors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestClient returns a client wired to an httptest server, without rate limits or backoff.
func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithGeocodeRate(0),
		WithOptimizeRate(0),
		WithBackoff(0),
	}
	c, err := NewClient("test-key", append(base, opts...)...)
	require.NoError(t, err)
	return c
}
