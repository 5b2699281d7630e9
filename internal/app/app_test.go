package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosort-service/internal/config"
	"geosort-service/internal/domain"
)

func testConfig(baseURL string, cacheEnabled bool) *config.Config {
	return &config.Config{
		ORS: config.ORSConfig{
			BaseURL:     baseURL,
			APIKey:      "test-key",
			Timeout:     time.Second,
			MaxAttempts: 1,
		},
		Geocode:  config.GeocodeConfig{Concurrency: 1},
		Optimize: config.OptimizeConfig{Profile: "foot", ServiceSeconds: 300},
		Export:   config.ExportConfig{SheetName: "Geosortiert", FileName: "out.xlsx"},
		Cache:    config.CacheConfig{Enabled: cacheEnabled},
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig("http://localhost", false)
	cfg.ORS.APIKey = ""

	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestPipelineUsesSessionCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"features":[{"geometry":{"coordinates":[8.0,50.0]}}]}`)
	}))
	defer srv.Close()

	a, err := New(testConfig(srv.URL, true))
	require.NoError(t, err)

	p, closer, err := a.NewPipeline(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, closer)
	defer closer.Close()

	// Same address twice: the second lookup is served from the session cache.
	_, err = p.Load("list.csv", []byte("Street,No,Zip,City\nMain St,1,12345,Town\nMain St,1,12345,Town\n"))
	require.NoError(t, err)

	report, err := p.Geocode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, 1, report.CacheHits)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, domain.StageGeocoded, p.Stage())
}

func TestPipelineWithoutCache(t *testing.T) {
	a, err := New(testConfig("http://127.0.0.1:1", false))
	require.NoError(t, err)

	p, closer, err := a.NewPipeline(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.NotNil(t, p)
}
