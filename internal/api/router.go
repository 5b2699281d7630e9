package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geosort-service/internal/api/handlers"
	"geosort-service/internal/metrics"
	"geosort-service/internal/session"
)

type RouterConfig struct {
	ExportFileName string
	MaxUploadBytes int64
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(store *session.Store, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	sh := &handlers.SessionHandler{
		Store:          store,
		ExportFileName: cfg.ExportFileName,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /sessions", sh.Create)
	mux.HandleFunc("GET /sessions/{id}", sh.Get)
	mux.HandleFunc("DELETE /sessions/{id}", sh.Delete)
	mux.HandleFunc("POST /sessions/{id}/geocode", sh.Geocode)
	mux.HandleFunc("POST /sessions/{id}/optimize", sh.Optimize)
	mux.HandleFunc("GET /sessions/{id}/export", sh.Export)
	mux.HandleFunc("GET /sessions/{id}/map", sh.Map)
	mux.HandleFunc("GET /sessions/{id}/map.geojson", sh.MapGeoJSON)
	mux.HandleFunc("GET /sessions/{id}/events", sh.Events)

	return loggingMiddleware(mux)
}
