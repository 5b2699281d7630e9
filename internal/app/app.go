// Package app wires configuration into the ORS client and per-session pipelines.
package app

import (
	"context"
	"io"

	"github.com/rotisserie/eris"

	"geosort-service/internal/adapters/cache"
	"geosort-service/internal/adapters/ors"
	"geosort-service/internal/config"
	"geosort-service/internal/services"
)

// App is the composition root shared by the server and the CLI.
type App struct {
	Config *config.Config
	Client *ors.Client
}

// New builds the ORS client from cfg. The API key must be set.
func New(cfg *config.Config) (*App, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	client, err := ors.NewClient(cfg.ORS.APIKey,
		ors.WithBaseURL(cfg.ORS.BaseURL),
		ors.WithTimeout(cfg.ORS.Timeout),
		ors.WithMaxAttempts(cfg.ORS.MaxAttempts),
		ors.WithGeocodeRate(cfg.ORS.GeocodeRatePerMinute),
		ors.WithOptimizeRate(cfg.ORS.OptimizeRatePerMinute),
		ors.WithBoundaryCountry(cfg.ORS.BoundaryCountry),
	)
	if err != nil {
		return nil, eris.Wrap(err, "app: ors client")
	}

	return &App{Config: cfg, Client: client}, nil
}

// NewPipeline creates a pipeline with its own geocode cache when caching is enabled.
// The returned closer releases the cache and may be nil.
func (a *App) NewPipeline(ctx context.Context, sink func(services.Event)) (*services.Pipeline, io.Closer, error) {
	client := a.Client
	var closer io.Closer

	if a.Config.Cache.Enabled {
		c, err := cache.NewSessionGeocodeCache(ctx)
		if err != nil {
			return nil, nil, eris.Wrap(err, "app: geocode cache")
		}
		client = client.UsingCache(c)
		closer = c
	}

	p := services.NewPipeline(client, client, a.pipelineOptions(sink)...)
	return p, closer, nil
}

func (a *App) pipelineOptions(sink func(services.Event)) []services.PipelineOption {
	cfg := a.Config
	opts := []services.PipelineOption{
		services.WithGeocodeOptions(services.GeocodeOptions{
			Columns:     cfg.Geocode.Columns.Mapping(),
			Concurrency: cfg.Geocode.Concurrency,
		}),
		services.WithRouteOptions(services.RouteOptions{
			Profile:        cfg.Optimize.Profile,
			ServiceSeconds: cfg.Optimize.ServiceSeconds,
		}),
		services.WithSheetName(cfg.Export.SheetName),
	}
	if sink != nil {
		opts = append(opts, services.WithEventSink(sink))
	}
	return opts
}
