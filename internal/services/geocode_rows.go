package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geosort-service/internal/domain"
	"geosort-service/internal/metrics"
	"geosort-service/internal/platform/obs"
	"geosort-service/internal/ports"
)

// Header labels appended by GeocodeTable.
const (
	LatitudeHeader  = "Latitude"
	LongitudeHeader = "Longitude"
)

type GeocodeOptions struct {
	Columns domain.ColumnMapping
	// Concurrency bounds outstanding lookups. Values below 1 mean one at a time.
	Concurrency int
	// OnProgress is called after each row with the number of finished rows.
	// Calls are serialized.
	OnProgress func(done, total int)
}

type GeocodeReport struct {
	Outcome  Outcome `json:"outcome"`
	Total    int     `json:"total"`
	Resolved int     `json:"resolved"`
	// Unresolved holds 1-based data row numbers left without coordinates.
	Unresolved []int `json:"unresolved"`
	CacheHits  int   `json:"cache_hits"`
}

// GeocodeTable resolves every data row of table and returns a new table with
// latitude and longitude appended to each row (nil pair when unresolved).
//
// Per-row failures never abort the pass. Only cancellation of ctx does, in which
// case nothing is returned. A table without data rows is a no-op.
func GeocodeTable(
	ctx context.Context,
	table domain.Table,
	geocoder ports.Geocoder,
	opts GeocodeOptions,
) (_ domain.Table, _ GeocodeReport, err error) {
	if !table.HasData() {
		return nil, GeocodeReport{Outcome: OutcomeSkipped}, nil
	}

	defer obs.Time(ctx, "services.GeocodeTable")(&err)

	if geocoder == nil {
		return nil, GeocodeReport{}, eris.New("geocode: geocoder is nil")
	}
	if err := opts.Columns.Validate(); err != nil {
		return nil, GeocodeReport{}, eris.Wrap(err, "geocode")
	}

	data := table.Data()
	total := len(data)
	coords := make([]*domain.Coordinates, total)

	var (
		cacheHits atomic.Int64
		done      int
		progMu    sync.Mutex
	)

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, row := range data {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			c, cached, err := geocodeRow(gctx, geocoder, opts.Columns, i, row)
			if err != nil {
				return err
			}
			coords[i] = c
			if cached {
				cacheHits.Add(1)
			}

			if opts.OnProgress != nil {
				progMu.Lock()
				done++
				opts.OnProgress(done, total)
				progMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, GeocodeReport{}, eris.Wrap(err, "geocode: pass aborted")
	}

	out := make(domain.Table, 0, len(table))
	out = append(out, append(table.Header().Clone(), LatitudeHeader, LongitudeHeader))

	report := GeocodeReport{
		Total:      total,
		Unresolved: []int{},
		CacheHits:  int(cacheHits.Load()),
	}
	for i, row := range data {
		out = append(out, row.WithCoordinates(coords[i]))
		if coords[i] == nil {
			report.Unresolved = append(report.Unresolved, i+1)
		} else {
			report.Resolved++
		}
	}

	report.Outcome = OutcomeSuccess
	if len(report.Unresolved) > 0 {
		report.Outcome = OutcomePartial
	}

	zap.L().Info("geocoding complete",
		zap.String("req_id", obs.RequestID(ctx)),
		zap.Int("total", report.Total),
		zap.Int("resolved", report.Resolved),
		zap.Int("cache_hits", report.CacheHits),
	)

	return out, report, nil
}

// geocodeRow looks up one data row. It only returns an error when ctx is done;
// every other failure yields nil coordinates.
func geocodeRow(
	ctx context.Context,
	geocoder ports.Geocoder,
	cols domain.ColumnMapping,
	i int,
	row domain.Row,
) (*domain.Coordinates, bool, error) {
	address := cols.Address(row)
	if address == "" {
		metrics.GeocodeLookups.WithLabelValues("skipped").Inc()
		return nil, false, nil
	}

	res, err := geocoder.Geocode(ctx, address)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		metrics.GeocodeLookups.WithLabelValues("failed").Inc()
		zap.L().Warn("geocode row failed",
			zap.String("req_id", obs.RequestID(ctx)),
			zap.Int("row", i+1),
			zap.String("address", address),
			zap.Error(err),
		)
		return nil, false, nil
	}

	if !res.Matched {
		metrics.GeocodeLookups.WithLabelValues("unmatched").Inc()
		return nil, false, nil
	}

	if res.Cached {
		metrics.GeocodeLookups.WithLabelValues("cached").Inc()
	} else {
		metrics.GeocodeLookups.WithLabelValues("matched").Inc()
	}

	c := res.Coordinates
	return &c, res.Cached, nil
}
