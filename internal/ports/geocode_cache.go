package ports

import (
	"context"

	"geosort-service/internal/domain"
)

// Port: a lookaside store of previously resolved addresses.
// Keys are normalized address strings.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
