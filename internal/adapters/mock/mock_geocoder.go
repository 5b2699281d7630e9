// Package mock provides in-memory geocoder and optimizer doubles.
package mock

import (
	"context"
	"fmt"
	"sync"

	"geosort-service/internal/domain"
	"geosort-service/internal/ports"
)

type MockGeocoder struct {
	mu    sync.Mutex
	m     map[string]domain.Coordinates
	fail  map[string]error
	calls []string
}

// NewMockGeocoder resolves the given addresses; every other address is unmatched.
func NewMockGeocoder(known map[string]domain.Coordinates) *MockGeocoder {
	m := make(map[string]domain.Coordinates, len(known))
	for k, v := range known {
		m[k] = v
	}
	return &MockGeocoder{m: m, fail: map[string]error{}}
}

// FailOn makes lookups of address return err.
func (g *MockGeocoder) FailOn(address string, err error) *MockGeocoder {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[address] = err
	return g
}

func (g *MockGeocoder) Geocode(ctx context.Context, address string) (ports.GeocodeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, address)

	if err := ctx.Err(); err != nil {
		return ports.GeocodeResult{}, err
	}
	if err, ok := g.fail[address]; ok {
		return ports.GeocodeResult{}, fmt.Errorf("mock geocode %q: %w", address, err)
	}

	c, ok := g.m[address]
	if !ok {
		return ports.GeocodeResult{Matched: false}, nil
	}
	return ports.GeocodeResult{Coordinates: c, Matched: true}, nil
}

// Calls returns the addresses looked up so far, in call order.
func (g *MockGeocoder) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}
