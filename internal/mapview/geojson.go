package mapview

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSON encodes points as a FeatureCollection: one Point feature per stop followed by
// a LineString through all stops in route order (only when there are two or more).
func GeoJSON(points []Point) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(points)+1)}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{p.Lng, p.Lat}),
			Properties: map[string]any{
				"order": p.Order,
				"lat":   p.Lat,
				"lng":   p.Lng,
			},
		})
		flat = append(flat, p.Lng, p.Lat)
	}

	if len(points) >= 2 {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewLineStringFlat(geom.XY, flat),
			Properties: map[string]any{"kind": "route"},
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "mapview: encode geojson")
	}
	return data, nil
}
