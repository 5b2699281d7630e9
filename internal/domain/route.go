package domain

// Job is one location to be visited, as modeled by the optimization service.
// ID is the 1-based position of the source row among the data rows.
type Job struct {
	ID             int
	Location       Coordinates
	ServiceSeconds int
}

// Vehicle is the synthetic agent the optimizer routes from its start location.
type Vehicle struct {
	ID      int
	Profile string
	Start   Coordinates
}

// OptimizationRequest is a single submission of jobs and vehicles.
type OptimizationRequest struct {
	Jobs     []Job
	Vehicles []Vehicle
}

// Step types reported by the optimizer.
const (
	StepStart = "start"
	StepJob   = "job"
	StepEnd   = "end"
)

// RouteStep is one entry in a route. JobID is zero for start and end steps.
type RouteStep struct {
	Type            string
	JobID           int
	Location        *Coordinates
	ArrivalSeconds  int
	DurationSeconds int
}

// Route is the ordered visit sequence computed for one vehicle.
type Route struct {
	VehicleID       int
	Steps           []RouteStep
	Cost            int
	DurationSeconds int
	ServiceSeconds  int
}

// JobSteps returns only the steps that visit a job, in route order.
func (r Route) JobSteps() []RouteStep {
	out := make([]RouteStep, 0, len(r.Steps))
	for _, s := range r.Steps {
		if s.Type == StepJob || (s.Type == "" && s.JobID > 0) {
			out = append(out, s)
		}
	}
	return out
}

// OptimizationResult is the optimizer's answer to an OptimizationRequest.
// Unassigned lists job ids the optimizer could not place on any route.
type OptimizationResult struct {
	Routes     []Route
	Unassigned []int
}
