package ors

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosort-service/internal/adapters/cache"
	"geosort-service/internal/domain"
)

func TestGeocodeRequestShape(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[8.0,50.0]}}]}`)
	}, WithBoundaryCountry("DE"))

	res, err := c.Geocode(context.Background(), "Main St  1,  12345 Town")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/geocode/search", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "test-key", q.Get("api_key"))
	assert.Equal(t, "Main St 1, 12345 Town", q.Get("text"))
	assert.Equal(t, "1", q.Get("size"))
	assert.Equal(t, "DE", q.Get("boundary.country"))
	assert.Equal(t, "test-key", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))

	// [lon, lat] on the wire
	assert.True(t, res.Matched)
	assert.Equal(t, domain.Coordinates{Lon: 8.0, Lat: 50.0}, res.Coordinates)
}

func TestGeocodeNoFeaturesIsUnmatched(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features":[]}`)
	})

	res, err := c.Geocode(context.Background(), "Nowhere 0")
	require.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestGeocodeClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"forbidden"}`)
	})

	_, err := c.Geocode(context.Background(), "Main St 1")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	assert.Contains(t, err.Error(), "forbidden")
}

func TestGeocodeRetriesTransientOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[8.1,50.1]}}]}`)
	})

	res, err := c.Geocode(context.Background(), "Main St 1")
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeocodeGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, WithMaxAttempts(2))

	_, err := c.Geocode(context.Background(), "Main St 1")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestGeocodeInvalidCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[8.0]}}]}`)
	})

	_, err := c.Geocode(context.Background(), "Main St 1")
	assert.Error(t, err)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Geocode(context.Background(), "   ")
	assert.Error(t, err)
}

func TestGeocodeUsesCache(t *testing.T) {
	store, err := cache.NewSessionGeocodeCache(context.Background())
	require.NoError(t, err)
	defer store.Close()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[8.0,50.0]}}]}`)
	}, WithGeocodeCache(store))

	first, err := c.Geocode(context.Background(), "Main St 1")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Geocode(context.Background(), " Main  St 1 ")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Coordinates, second.Coordinates)

	assert.Equal(t, int32(1), calls.Load())
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(" ")
	assert.Error(t, err)
}

func TestUsingCacheSharesLimiter(t *testing.T) {
	c, err := NewClient("k", WithGeocodeRate(30))
	require.NoError(t, err)

	store, err := cache.NewSessionGeocodeCache(context.Background())
	require.NoError(t, err)
	defer store.Close()

	scoped := c.UsingCache(store)
	assert.Same(t, c.geocodeLimiter, scoped.geocodeLimiter)
	assert.Same(t, c.session, scoped.session)
	assert.Nil(t, c.geocodeCache)
	assert.NotNil(t, scoped.geocodeCache)
}
