package mock

import (
	"context"
	"errors"
	"sync"

	"geosort-service/internal/domain"
)

// MockOptimizer answers every request with a fixed visiting order.
type MockOptimizer struct {
	mu       sync.Mutex
	order    []int
	err      error
	noRoutes bool
	requests []domain.OptimizationRequest
}

// NewMockOptimizer visits job ids in order. A nil order visits jobs as submitted.
func NewMockOptimizer(order []int) *MockOptimizer {
	return &MockOptimizer{order: order}
}

// Failing returns an optimizer whose every call fails with err.
func Failing(err error) *MockOptimizer {
	return &MockOptimizer{err: err}
}

// WithoutRoutes returns an optimizer that answers with an empty route list.
func WithoutRoutes() *MockOptimizer {
	return &MockOptimizer{noRoutes: true}
}

func (o *MockOptimizer) Optimize(ctx context.Context, req domain.OptimizationRequest) (*domain.OptimizationResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.requests = append(o.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.err != nil {
		return nil, o.err
	}
	if o.noRoutes {
		return &domain.OptimizationResult{}, nil
	}
	if len(req.Vehicles) == 0 {
		return nil, errors.New("mock optimize: no vehicle")
	}

	order := o.order
	if order == nil {
		for _, j := range req.Jobs {
			order = append(order, j.ID)
		}
	}

	route := domain.Route{VehicleID: req.Vehicles[0].ID}
	route.Steps = append(route.Steps, domain.RouteStep{Type: domain.StepStart})
	for _, id := range order {
		route.Steps = append(route.Steps, domain.RouteStep{Type: domain.StepJob, JobID: id})
	}
	route.Steps = append(route.Steps, domain.RouteStep{Type: domain.StepEnd})

	return &domain.OptimizationResult{Routes: []domain.Route{route}}, nil
}

// Requests returns every request received so far.
func (o *MockOptimizer) Requests() []domain.OptimizationRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.OptimizationRequest, len(o.requests))
	copy(out, o.requests)
	return out
}
