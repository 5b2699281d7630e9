package services

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"geosort-service/internal/domain"
	"geosort-service/internal/metrics"
	"geosort-service/internal/platform/obs"
	"geosort-service/internal/ports"
)

// ErrOptimization marks a failed optimization pass.
var ErrOptimization = eris.New("route optimization failed")

const (
	DefaultProfile        = "foot"
	DefaultServiceSeconds = 300
)

type RouteOptions struct {
	Profile        string
	ServiceSeconds int
}

func (o RouteOptions) withDefaults() RouteOptions {
	if o.Profile == "" {
		o.Profile = DefaultProfile
	}
	if o.ServiceSeconds <= 0 {
		o.ServiceSeconds = DefaultServiceSeconds
	}
	return o
}

type RouteReport struct {
	Outcome Outcome `json:"outcome"`
	Stops   int     `json:"stops"`
	// Unrouted holds 1-based data row numbers that had no coordinates.
	Unrouted []int `json:"unrouted"`
	// Unassigned holds job ids the optimizer left out of the route.
	Unassigned      []int `json:"unassigned"`
	DurationSeconds int   `json:"duration_seconds"`
	Cost            int   `json:"cost"`
}

// BuildOptimizationRequest turns the geocoded table into one job per data row with
// coordinates and a single vehicle starting at the first job. Job ids are 1-based
// data row positions. Rows without coordinates are returned as unrouted row numbers.
func BuildOptimizationRequest(table domain.Table, opts RouteOptions) (domain.OptimizationRequest, []int) {
	opts = opts.withDefaults()

	req := domain.OptimizationRequest{}
	unrouted := []int{}

	for i, row := range table.Data() {
		loc, ok := row.TrailingCoordinates()
		if !ok {
			unrouted = append(unrouted, i+1)
			continue
		}
		req.Jobs = append(req.Jobs, domain.Job{
			ID:             i + 1,
			Location:       loc,
			ServiceSeconds: opts.ServiceSeconds,
		})
	}

	if len(req.Jobs) > 0 {
		req.Vehicles = []domain.Vehicle{{
			ID:      1,
			Profile: opts.Profile,
			Start:   req.Jobs[0].Location,
		}}
	}

	return req, unrouted
}

// OrderRows reorders the data rows of table along the first route of res.
// The header stays first. Rows the route does not visit follow in their original order,
// so the result is always a permutation of the input data rows.
func OrderRows(
	table domain.Table,
	req domain.OptimizationRequest,
	res *domain.OptimizationResult,
) (domain.Table, RouteReport, error) {
	if res == nil || len(res.Routes) == 0 {
		return nil, RouteReport{}, eris.Wrap(ErrOptimization, "response contains no route")
	}
	route := res.Routes[0]

	data := table.Data()

	rowOf := make(map[int]int, len(req.Jobs))
	for _, j := range req.Jobs {
		rowOf[j.ID] = j.ID - 1
	}

	visited := make([]bool, len(data))
	out := make(domain.Table, 0, len(table))
	out = append(out, table.Header().Clone())

	for _, step := range route.JobSteps() {
		idx, ok := rowOf[step.JobID]
		if !ok || idx < 0 || idx >= len(data) {
			return nil, RouteReport{}, eris.Wrapf(ErrOptimization, "route references unknown job %d", step.JobID)
		}
		if visited[idx] {
			return nil, RouteReport{}, eris.Wrapf(ErrOptimization, "route visits job %d twice", step.JobID)
		}
		visited[idx] = true
		out = append(out, data[idx].Clone())
	}

	report := RouteReport{
		Stops:           len(out) - 1,
		Unrouted:        []int{},
		Unassigned:      []int{},
		DurationSeconds: route.DurationSeconds,
		Cost:            route.Cost,
	}

	for i, row := range data {
		if visited[i] {
			continue
		}
		out = append(out, row.Clone())
		if _, isJob := rowOf[i+1]; isJob {
			report.Unassigned = append(report.Unassigned, i+1)
		} else {
			report.Unrouted = append(report.Unrouted, i+1)
		}
	}

	report.Outcome = OutcomeSuccess
	if len(report.Unrouted) > 0 || len(report.Unassigned) > 0 {
		report.Outcome = OutcomePartial
	}

	return out, report, nil
}

// OptimizeRoute computes the visiting order of the geocoded table and returns the
// sorted table. A table without data rows is a no-op.
func OptimizeRoute(
	ctx context.Context,
	table domain.Table,
	optimizer ports.RouteOptimizer,
	opts RouteOptions,
) (_ domain.Table, _ RouteReport, err error) {
	if !table.HasData() {
		return nil, RouteReport{Outcome: OutcomeSkipped}, nil
	}

	defer obs.Time(ctx, "services.OptimizeRoute")(&err)
	defer func() {
		if err != nil {
			metrics.OptimizationRuns.WithLabelValues("failed").Inc()
		}
	}()

	if optimizer == nil {
		return nil, RouteReport{}, eris.New("optimize: optimizer is nil")
	}

	req, _ := BuildOptimizationRequest(table, opts)
	if len(req.Jobs) == 0 {
		return nil, RouteReport{}, eris.Wrap(ErrOptimization, "no geocoded rows to route")
	}

	res, err := optimizer.Optimize(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, RouteReport{}, eris.Wrap(ctx.Err(), "optimize: cancelled")
		}
		return nil, RouteReport{}, eris.Wrapf(ErrOptimization, "%v", err)
	}

	sorted, report, err := OrderRows(table, req, res)
	if err != nil {
		return nil, RouteReport{}, err
	}

	metrics.OptimizationRuns.WithLabelValues(string(report.Outcome)).Inc()
	zap.L().Info("route optimized",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.Int("stops", report.Stops),
		zap.Int("unrouted", len(report.Unrouted)),
		zap.Int("unassigned", len(report.Unassigned)),
		zap.Int("duration_s", report.DurationSeconds),
	)

	return sorted, report, nil
}
