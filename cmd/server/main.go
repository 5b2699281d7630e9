package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"geosort-service/internal/api"
	"geosort-service/internal/app"
	"geosort-service/internal/config"
	"geosort-service/internal/metrics"
	"geosort-service/internal/session"
)

// main is the application composition root.
// It wires the ORS client behind the pipeline ports, owns the session store and starts the HTTP server.
func main() {
	dotenv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zap.L().Sync() }()

	if !dotenv {
		zap.L().Info("no .env file found (using environment variables)")
	}

	if err := run(cfg); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	metrics.RegisterDefault()

	store := session.NewStore(a.NewPipeline, session.NewBroker(), cfg.Server.SessionTTL)
	defer store.Close()
	go store.Run(ctx, time.Minute)

	router := api.NewRouter(store, api.RouterConfig{
		ExportFileName: cfg.Export.FileName,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})

	// WriteTimeout covers a full geocode pass on a cold cache; the events
	// websocket is hijacked and not bound by it.
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
