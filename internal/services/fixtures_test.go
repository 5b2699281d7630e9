package services

import (
	"geosort-service/internal/adapters/mock"
	"geosort-service/internal/domain"
)

var (
	mainSt = domain.Coordinates{Lon: 8.0, Lat: 50.0}
	oakAve = domain.Coordinates{Lon: 8.1, Lat: 50.1}
)

func rawFixture() domain.Table {
	return domain.Table{
		{"Street", "No", "Zip", "City"},
		{"Main St", "1", "12345", "Town"},
		{"Oak Ave", "2", "12345", "Town"},
	}
}

func geocodedFixture() domain.Table {
	return domain.Table{
		{"Street", "No", "Zip", "City", "Latitude", "Longitude"},
		{"Main St", "1", "12345", "Town", 50.0, 8.0},
		{"Oak Ave", "2", "12345", "Town", 50.1, 8.1},
	}
}

func fullGeocoder() *mock.MockGeocoder {
	return mock.NewMockGeocoder(map[string]domain.Coordinates{
		"Main St 1, 12345 Town": mainSt,
		"Oak Ave 2, 12345 Town": oakAve,
	})
}
