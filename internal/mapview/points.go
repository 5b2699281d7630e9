// Package mapview turns a sorted table into map markers, a Leaflet page and GeoJSON.
package mapview

import (
	"geosort-service/internal/domain"
)

// Point is one routed stop. Order is its 1-based position on the route.
type Point struct {
	Order int     `json:"order"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// Points reads the trailing latitude and longitude of each data row of the sorted table.
// Rows without coordinates are skipped.
func Points(sorted domain.Table) []Point {
	out := make([]Point, 0, len(sorted))
	for _, row := range sorted.Data() {
		c, ok := row.TrailingCoordinates()
		if !ok {
			continue
		}
		out = append(out, Point{Order: len(out) + 1, Lat: c.Lat, Lng: c.Lon})
	}
	return out
}

// Center returns the point at the middle index. It reports false for no points.
func Center(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	return points[len(points)/2], true
}
