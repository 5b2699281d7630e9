package main

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geosort-service/internal/app"
	"geosort-service/internal/mapview"
	"geosort-service/internal/services"
)

var (
	runIn          string
	runOut         string
	runMap         string
	runGeoJSON     string
	runConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Parse, geocode, optimize and export an address list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, done, err := newPipeline(ctx, runConcurrency)
		if err != nil {
			return err
		}
		defer done()

		if err := loadAndGeocode(ctx, p, runIn); err != nil {
			return err
		}

		report, err := p.Optimize(ctx)
		if err != nil {
			return eris.Wrap(err, "run: optimize")
		}
		if report.Outcome == services.OutcomeSkipped {
			zap.L().Info("no data rows, nothing written")
			return nil
		}
		if report.Outcome == services.OutcomePartial {
			zap.L().Warn("some rows are not on the route",
				zap.Ints("unrouted", report.Unrouted),
				zap.Ints("unassigned", report.Unassigned),
			)
		}

		out := runOut
		if out == "" {
			out = cfg.Export.FileName
		}
		var buf bytes.Buffer
		if err := p.Export(&buf); err != nil {
			return eris.Wrap(err, "run: export")
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "run: write %s", out)
		}
		zap.L().Info("sorted list written", zap.String("path", out), zap.Int("stops", report.Stops))

		return writeMaps(p.Snapshot(), runMap, runGeoJSON)
	},
}

func init() {
	runCmd.Flags().StringVar(&runIn, "in", "", "input .xlsx or .csv file")
	runCmd.Flags().StringVar(&runOut, "out", "", "output .xlsx file (default export.file_name)")
	runCmd.Flags().StringVar(&runMap, "map", "", "write a Leaflet HTML map of the route")
	runCmd.Flags().StringVar(&runGeoJSON, "geojson", "", "write the route as GeoJSON")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "parallel geocoding requests (default geocode.concurrency)")
	_ = runCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(runCmd)
}

// newPipeline builds a pipeline from cfg. concurrency overrides the configured value when > 0.
func newPipeline(ctx context.Context, concurrency int) (*services.Pipeline, func(), error) {
	if concurrency > 0 {
		cfg.Geocode.Concurrency = concurrency
	}

	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	p, closer, err := a.NewPipeline(ctx, logProgress)
	if err != nil {
		return nil, nil, err
	}

	done := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return p, done, nil
}

func logProgress(e services.Event) {
	if e.Kind == services.EventProgress {
		zap.L().Debug("geocoding", zap.Int("done", e.Done), zap.Int("total", e.Total))
	}
}

func loadAndGeocode(ctx context.Context, p *services.Pipeline, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}

	table, err := p.Load(path, data)
	if err != nil {
		return err
	}
	zap.L().Info("parsed", zap.String("path", path), zap.Int("rows", len(table.Data())))

	report, err := p.Geocode(ctx)
	if err != nil {
		return eris.Wrap(err, "geocode")
	}
	if report.Outcome == services.OutcomePartial {
		zap.L().Warn("some rows could not be geocoded",
			zap.Int("resolved", report.Resolved),
			zap.Int("total", report.Total),
			zap.Ints("rows", report.Unresolved),
		)
	}
	return nil
}

func writeMaps(state services.State, htmlPath, geojsonPath string) error {
	points := mapview.Points(state.Sorted)
	if len(points) == 0 {
		return nil
	}

	if htmlPath != "" {
		var buf bytes.Buffer
		if err := mapview.RenderHTML(&buf, state.FileName, points); err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "write %s", htmlPath)
		}
	}

	if geojsonPath != "" {
		data, err := mapview.GeoJSON(points)
		if err != nil {
			return err
		}
		if err := os.WriteFile(geojsonPath, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", geojsonPath)
		}
	}
	return nil
}
