package ors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"

	"geosort-service/internal/domain"
	"geosort-service/internal/platform/obs"
)

type optimizationJob struct {
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
	Service  int       `json:"service"`
}

type optimizationVehicle struct {
	ID      int       `json:"id"`
	Profile string    `json:"profile"`
	Start   []float64 `json:"start"`
}

type optimizationRequest struct {
	Jobs     []optimizationJob     `json:"jobs"`
	Vehicles []optimizationVehicle `json:"vehicles"`
}

type optimizationStep struct {
	Type     string    `json:"type"`
	Job      int       `json:"job"`
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
	Arrival  int       `json:"arrival"`
	Duration int       `json:"duration"`
}

type optimizationResponse struct {
	Code       int `json:"code"`
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
	Routes []struct {
		Vehicle  int                `json:"vehicle"`
		Cost     int                `json:"cost"`
		Duration int                `json:"duration"`
		Service  int                `json:"service"`
		Steps    []optimizationStep `json:"steps"`
	} `json:"routes"`
}

// Optimize submits jobs and vehicles to the OpenRouteService optimization endpoint
// and maps the computed routes back to domain types.
func (c *Client) Optimize(
	ctx context.Context,
	req domain.OptimizationRequest,
) (_ *domain.OptimizationResult, err error) {
	defer obs.Time(ctx, "ors.Optimize")(&err)

	if len(req.Jobs) == 0 {
		return nil, errors.New("optimize: at least one job is required")
	}
	if len(req.Vehicles) == 0 {
		return nil, errors.New("optimize: at least one vehicle is required")
	}

	bodyObj := optimizationRequest{
		Jobs:     make([]optimizationJob, 0, len(req.Jobs)),
		Vehicles: make([]optimizationVehicle, 0, len(req.Vehicles)),
	}
	for _, j := range req.Jobs {
		bodyObj.Jobs = append(bodyObj.Jobs, optimizationJob{
			ID:       j.ID,
			Location: j.Location.CoordsToList(),
			Service:  j.ServiceSeconds,
		})
	}
	for _, v := range req.Vehicles {
		bodyObj.Vehicles = append(bodyObj.Vehicles, optimizationVehicle{
			ID:      v.ID,
			Profile: v.Profile,
			Start:   v.Start.CoordsToList(),
		})
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return nil, eris.Wrap(err, "marshal optimization request")
	}

	endpoint := c.baseURL + "/optimization"

	resp, err := c.doWithRetry(ctx, "optimization", c.optimizeLimiter, func() (*http.Request, error) {
		body := bytes.NewReader(payload)
		return c.newRequest(ctx, http.MethodPost, endpoint, body)
	})
	if err != nil {
		return nil, eris.Wrap(err, "optimization request failed")
	}
	defer resp.Body.Close()

	var or optimizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, eris.Wrap(err, "decode optimization response")
	}

	if or.Code != 0 {
		return nil, eris.Errorf("optimization returned code %d", or.Code)
	}

	out := &domain.OptimizationResult{
		Routes:     make([]domain.Route, 0, len(or.Routes)),
		Unassigned: make([]int, 0, len(or.Unassigned)),
	}
	for _, u := range or.Unassigned {
		out.Unassigned = append(out.Unassigned, u.ID)
	}

	for _, r := range or.Routes {
		route := domain.Route{
			VehicleID:       r.Vehicle,
			Cost:            r.Cost,
			DurationSeconds: r.Duration,
			ServiceSeconds:  r.Service,
			Steps:           make([]domain.RouteStep, 0, len(r.Steps)),
		}
		for _, s := range r.Steps {
			route.Steps = append(route.Steps, toRouteStep(s))
		}
		out.Routes = append(out.Routes, route)
	}

	return out, nil
}

func toRouteStep(s optimizationStep) domain.RouteStep {
	step := domain.RouteStep{
		Type:            s.Type,
		JobID:           s.Job,
		ArrivalSeconds:  s.Arrival,
		DurationSeconds: s.Duration,
	}

	// Newer VROOM builds report the job id in "id" only.
	if step.JobID == 0 && s.Type == domain.StepJob {
		step.JobID = s.ID
	}

	if loc, err := domain.CoordsFromList(s.Location); err == nil {
		step.Location = &loc
	}

	return step
}
