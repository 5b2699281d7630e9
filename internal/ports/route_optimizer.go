package ports

import (
	"context"

	"geosort-service/internal/domain"
)

// Contract for computing a visiting order for a set of jobs.
type RouteOptimizer interface {
	// Submit jobs and vehicles as one request and return the computed routes.
	Optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResult, error)
}
