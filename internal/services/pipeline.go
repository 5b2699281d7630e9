package services

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"geosort-service/internal/domain"
	"geosort-service/internal/ports"
	"geosort-service/internal/sheet"
)

var (
	// ErrBusy is returned when a pass is started while another one is running.
	ErrBusy = eris.New("a pass is already running")
	// ErrNotReady is returned when a stage is requested before its input exists.
	ErrNotReady = eris.New("pipeline stage not reached")
)

// Event kinds published to the event sink.
const (
	EventStage    = "stage"
	EventProgress = "progress"
	EventError    = "error"
)

// Event reports a stage transition, geocoding progress or a failed pass.
type Event struct {
	Kind    string       `json:"kind"`
	Stage   domain.Stage `json:"stage"`
	Loading bool         `json:"loading"`
	Done    int          `json:"done,omitempty"`
	Total   int          `json:"total,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// State is a copy of the pipeline state for presentation.
type State struct {
	Stage         domain.Stage   `json:"stage"`
	Loading       bool           `json:"loading"`
	FileName      string         `json:"file_name,omitempty"`
	Raw           domain.Table   `json:"raw"`
	Geocoded      domain.Table   `json:"geocoded"`
	Sorted        domain.Table   `json:"sorted"`
	GeocodeReport *GeocodeReport `json:"geocode_report,omitempty"`
	RouteReport   *RouteReport   `json:"route_report,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
}

// Pipeline holds one upload moving through Empty -> Parsed -> Geocoded -> Sorted.
// A stage only advances when its pass succeeds, and each pass replaces all
// downstream state. One pass runs at a time; others fail fast with ErrBusy.
type Pipeline struct {
	geocoder  ports.Geocoder
	optimizer ports.RouteOptimizer
	geoOpts   GeocodeOptions
	routeOpts RouteOptions
	sheetName string
	onEvent   func(Event)

	mu    sync.Mutex
	state State
}

type PipelineOption func(*Pipeline)

// WithGeocodeOptions sets column mapping and concurrency. OnProgress is chained
// with the pipeline's own progress events.
func WithGeocodeOptions(o GeocodeOptions) PipelineOption {
	return func(p *Pipeline) { p.geoOpts = o }
}

func WithRouteOptions(o RouteOptions) PipelineOption {
	return func(p *Pipeline) { p.routeOpts = o }
}

func WithSheetName(name string) PipelineOption {
	return func(p *Pipeline) { p.sheetName = name }
}

// WithEventSink receives every event. It must not call back into the pipeline.
func WithEventSink(fn func(Event)) PipelineOption {
	return func(p *Pipeline) { p.onEvent = fn }
}

func NewPipeline(geocoder ports.Geocoder, optimizer ports.RouteOptimizer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		geocoder:  geocoder,
		optimizer: optimizer,
		geoOpts:   GeocodeOptions{Columns: domain.DefaultColumns},
		sheetName: sheet.DefaultSheetName,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load parses an upload and replaces all state with it. A parse failure leaves the
// previous state untouched.
func (p *Pipeline) Load(name string, data []byte) (domain.Table, error) {
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.end()

	t, err := sheet.Parse(name, data)
	if err != nil {
		p.report(err)
		return nil, err
	}

	p.mu.Lock()
	p.state = State{
		Stage:    domain.StageParsed,
		Loading:  true,
		FileName: name,
		Raw:      t,
	}
	p.mu.Unlock()

	p.emit(Event{Kind: EventStage, Stage: domain.StageParsed, Loading: true})
	return t.Clone(), nil
}

// Geocode resolves the parsed table. Without data rows it is a no-op.
func (p *Pipeline) Geocode(ctx context.Context) (GeocodeReport, error) {
	if err := p.begin(); err != nil {
		return GeocodeReport{}, err
	}
	defer p.end()

	p.mu.Lock()
	stage, raw := p.state.Stage, p.state.Raw
	p.mu.Unlock()

	if stage < domain.StageParsed {
		return GeocodeReport{}, eris.Wrap(ErrNotReady, "geocode: nothing loaded")
	}
	if !raw.HasData() {
		return GeocodeReport{Outcome: OutcomeSkipped}, nil
	}

	opts := p.geoOpts
	userProgress := opts.OnProgress
	opts.OnProgress = func(done, total int) {
		if userProgress != nil {
			userProgress(done, total)
		}
		p.emit(Event{Kind: EventProgress, Stage: stage, Loading: true, Done: done, Total: total})
	}

	geocoded, report, err := GeocodeTable(ctx, raw, p.geocoder, opts)
	if err != nil {
		p.fail(err)
		return GeocodeReport{}, err
	}

	p.mu.Lock()
	p.state.Geocoded = geocoded
	p.state.Sorted = nil
	p.state.GeocodeReport = &report
	p.state.RouteReport = nil
	p.state.Stage = domain.StageGeocoded
	p.state.LastError = ""
	p.mu.Unlock()

	p.emit(Event{Kind: EventStage, Stage: domain.StageGeocoded, Loading: true})
	return report, nil
}

// Optimize orders the geocoded table. On failure any sorted table is cleared and the
// stage falls back to Geocoded. Without data rows it is a no-op.
func (p *Pipeline) Optimize(ctx context.Context) (RouteReport, error) {
	if err := p.begin(); err != nil {
		return RouteReport{}, err
	}
	defer p.end()

	p.mu.Lock()
	stage, raw, geocoded := p.state.Stage, p.state.Raw, p.state.Geocoded
	p.mu.Unlock()

	if stage >= domain.StageParsed && !raw.HasData() {
		return RouteReport{Outcome: OutcomeSkipped}, nil
	}
	if stage < domain.StageGeocoded {
		return RouteReport{}, eris.Wrap(ErrNotReady, "optimize: rows are not geocoded")
	}

	sorted, report, err := OptimizeRoute(ctx, geocoded, p.optimizer, p.routeOpts)
	if err != nil {
		p.mu.Lock()
		p.state.Sorted = nil
		p.state.RouteReport = nil
		p.state.Stage = domain.StageGeocoded
		p.mu.Unlock()

		p.fail(err)
		return RouteReport{}, err
	}

	p.mu.Lock()
	p.state.Sorted = sorted
	p.state.RouteReport = &report
	p.state.Stage = domain.StageSorted
	p.state.LastError = ""
	p.mu.Unlock()

	p.emit(Event{Kind: EventStage, Stage: domain.StageSorted, Loading: true})
	return report, nil
}

// Export writes the sorted table as xlsx.
func (p *Pipeline) Export(w io.Writer) error {
	p.mu.Lock()
	stage, sorted := p.state.Stage, p.state.Sorted
	p.mu.Unlock()

	if stage != domain.StageSorted {
		return eris.Wrap(ErrNotReady, "export: route is not optimized")
	}
	return sheet.Export(w, sorted, p.sheetName)
}

// Loading reports whether a pass is running.
func (p *Pipeline) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Loading
}

func (p *Pipeline) Stage() domain.Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Stage
}

// Snapshot returns a deep copy of the current state.
func (p *Pipeline) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.state
	s.Raw = s.Raw.Clone()
	s.Geocoded = s.Geocoded.Clone()
	s.Sorted = s.Sorted.Clone()
	if s.GeocodeReport != nil {
		r := *s.GeocodeReport
		r.Unresolved = slices.Clone(r.Unresolved)
		s.GeocodeReport = &r
	}
	if s.RouteReport != nil {
		r := *s.RouteReport
		r.Unrouted = slices.Clone(r.Unrouted)
		r.Unassigned = slices.Clone(r.Unassigned)
		s.RouteReport = &r
	}
	return s
}

func (p *Pipeline) begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.Loading {
		return ErrBusy
	}
	p.state.Loading = true
	return nil
}

func (p *Pipeline) end() {
	p.mu.Lock()
	p.state.Loading = false
	stage := p.state.Stage
	p.mu.Unlock()

	p.emit(Event{Kind: EventStage, Stage: stage, Loading: false})
}

// fail records err as the last error and reports it.
func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	p.state.LastError = err.Error()
	p.mu.Unlock()

	p.report(err)
}

func (p *Pipeline) report(err error) {
	stage := p.Stage()
	zap.L().Warn("pipeline pass failed", zap.Stringer("stage", stage), zap.Error(err))
	p.emit(Event{Kind: EventError, Stage: stage, Loading: true, Error: err.Error()})
}

func (p *Pipeline) emit(e Event) {
	if p.onEvent != nil {
		p.onEvent(e)
	}
}
