package mapview

import (
	"html/template"
	"io"

	"github.com/rotisserie/eris"
)

const DefaultZoom = 13

var pageTmpl = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.3/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.3/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var points = {{.Points}};
var map = L.map("map").setView([{{.Center.Lat}}, {{.Center.Lng}}], {{.Zoom}});
L.tileLayer("https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", {
  attribution: '&copy; <a href="https://osm.org/copyright">OpenStreetMap</a> contributors'
}).addTo(map);
points.forEach(function (p) {
  L.marker([p.lat, p.lng]).addTo(map)
    .bindPopup("<p><strong>#" + p.order + "</strong></p><p>Lat: " + p.lat + "</p><p>Lng: " + p.lng + "</p>");
});
L.polyline(points.map(function (p) { return [p.lat, p.lng]; }), {color: "blue"}).addTo(map);
</script>
</body>
</html>
`))

type page struct {
	Title  string
	Points []Point
	Center Point
	Zoom   int
}

// ErrNoPoints is returned by RenderHTML when there is nothing to draw.
var ErrNoPoints = eris.New("mapview: no points")

// RenderHTML writes a standalone Leaflet page with one marker per point and a blue
// polyline in route order, centered on the middle point.
func RenderHTML(w io.Writer, title string, points []Point) error {
	center, ok := Center(points)
	if !ok {
		return ErrNoPoints
	}

	err := pageTmpl.Execute(w, page{
		Title:  title,
		Points: points,
		Center: center,
		Zoom:   DefaultZoom,
	})
	if err != nil {
		return eris.Wrap(err, "mapview: render")
	}
	return nil
}
