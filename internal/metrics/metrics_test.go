package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		RegisterDefault()
		RegisterDefault()
	})
}

func TestGeocodeLookupsCounts(t *testing.T) {
	before := testutil.ToFloat64(GeocodeLookups.WithLabelValues("matched"))
	GeocodeLookups.WithLabelValues("matched").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(GeocodeLookups.WithLabelValues("matched")))
}

func TestObserveORS(t *testing.T) {
	assert.NotPanics(t, func() {
		ObserveORS("geocode", 200, 15*time.Millisecond)
		ObserveORS("optimization", 0, time.Second)
	})
	assert.Equal(t, 2, testutil.CollectAndCount(ORSDuration))
}
