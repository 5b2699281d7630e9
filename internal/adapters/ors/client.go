// Package ors talks to the OpenRouteService geocoding and optimization APIs.
package ors

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"geosort-service/internal/ports"
)

const DefaultBaseURL = "https://api.openrouteservice.org"

// Client implements ports.Geocoder and ports.RouteOptimizer using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Optional lookaside geocode caching
//   - Client-side rate limiting per endpoint
//   - External API calls with bounded retry/backoff
//
// The client is safe for concurrent use.
type Client struct {
	session         *http.Client
	apiKey          string
	baseURL         string
	boundaryCountry string
	maxAttempts     int
	backoff         time.Duration
	geocodeLimiter  *rate.Limiter
	optimizeLimiter *rate.Limiter
	geocodeCache    ports.GeocodeCache
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at another ORS deployment (or a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session = hc }
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient is
// copied first and left unchanged.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.session
			hc.Timeout = d
			c.session = &hc
		}
	}
}

// WithMaxAttempts bounds the attempts per call, the first try included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles on each further retry.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithGeocodeRate limits geocoding calls to perMinute. Zero or less disables the limit.
func WithGeocodeRate(perMinute float64) Option {
	return func(c *Client) { c.geocodeLimiter = newLimiter(perMinute) }
}

// WithOptimizeRate limits optimization calls to perMinute. Zero or less disables the limit.
func WithOptimizeRate(perMinute float64) Option {
	return func(c *Client) { c.optimizeLimiter = newLimiter(perMinute) }
}

// WithBoundaryCountry restricts geocoding candidates to an ISO country code.
func WithBoundaryCountry(code string) Option {
	return func(c *Client) { c.boundaryCountry = strings.TrimSpace(code) }
}

// WithGeocodeCache consults cache before calling the geocoding endpoint.
func WithGeocodeCache(cache ports.GeocodeCache) Option {
	return func(c *Client) { c.geocodeCache = cache }
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	client := &Client{
		session:         &http.Client{Timeout: 10 * time.Second},
		apiKey:          apiKey,
		baseURL:         DefaultBaseURL,
		maxAttempts:     2,
		backoff:         200 * time.Millisecond,
		geocodeLimiter:  newLimiter(100),
		optimizeLimiter: newLimiter(40),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func newLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), 1)
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// UsingCache returns a copy of the client that consults cache. The copy shares the
// HTTP client and rate limiters with c, so all copies draw from one quota.
func (c *Client) UsingCache(cache ports.GeocodeCache) *Client {
	clone := *c
	clone.geocodeCache = cache
	return &clone
}
