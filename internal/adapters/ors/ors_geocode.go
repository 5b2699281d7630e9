package ors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"geosort-service/internal/domain"
	"geosort-service/internal/platform/obs"
	"geosort-service/internal/ports"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves one address using OpenRouteService (/geocode/search), asking for
// a single candidate. An empty feature list is reported as unmatched, not as an error.
func (c *Client) Geocode(ctx context.Context, address string) (_ ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	norm := normalize(address)
	if norm == "" {
		return ports.GeocodeResult{}, errors.New("geocode: address must be non-empty")
	}

	// Resolve via cache before calling ORS geocoding.
	if c.geocodeCache != nil {
		hits, err := c.geocodeCache.GetMany(ctx, []string{norm})
		if err != nil {
			zap.L().Warn("geocode cache read failed", zap.Error(err))
		} else if coords, ok := hits[norm]; ok {
			return ports.GeocodeResult{Coordinates: coords, Matched: true, Cached: true}, nil
		}
	}

	endpoint := c.baseURL + "/geocode/search"

	resp, err := c.doWithRetry(ctx, "geocode", c.geocodeLimiter, func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("api_key", c.apiKey)
		q.Set("text", norm)
		q.Set("size", "1")
		if c.boundaryCountry != "" {
			q.Set("boundary.country", c.boundaryCountry)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return ports.GeocodeResult{}, eris.Wrapf(err, "geocode %q", norm)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.GeocodeResult{}, eris.Wrap(err, "decode geocode response")
	}

	if len(decoded.Features) == 0 {
		return ports.GeocodeResult{Matched: false}, nil
	}

	coords, err := domain.CoordsFromList(decoded.Features[0].Geometry.Coordinates)
	if err != nil {
		return ports.GeocodeResult{}, eris.Wrapf(err, "invalid coordinate format for %q", norm)
	}

	if c.geocodeCache != nil {
		if err := c.geocodeCache.PutMany(ctx, map[string]domain.Coordinates{norm: coords}); err != nil {
			zap.L().Warn("geocode cache write failed", zap.Error(err))
		}
	}

	return ports.GeocodeResult{Coordinates: coords, Matched: true}, nil
}
