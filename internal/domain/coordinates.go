package domain

import "fmt"

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// CoordsFromList reads an external [lon, lat] pair.
func CoordsFromList(pair []float64) (Coordinates, error) {
	if len(pair) != 2 {
		return Coordinates{}, fmt.Errorf("coordinate pair must have 2 values, got %d", len(pair))
	}
	return Coordinates{Lon: pair[0], Lat: pair[1]}, nil
}
