package ports

import (
	"context"

	"geosort-service/internal/domain"
)

// Outcome of resolving one free-text address.
// An unmatched address is not an error: Matched is false and Coordinates is zero.
type GeocodeResult struct {
	Coordinates domain.Coordinates
	Matched     bool
	Cached      bool
}

// Contract for resolving free-text addresses into coordinates.
type Geocoder interface {
	// Resolve the best single candidate for the address.
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}
