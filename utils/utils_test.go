package utils

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, delta            float64
	}{
		{"same point", 50.08, 14.42, 50.08, 14.42, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 1},
		{"prague to brno", 50.0755, 14.4378, 49.1951, 16.6068, 185000, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HaversineMeters(tt.lat1, tt.lon1, tt.lat2, tt.lon2), tt.delta)
		})
	}
}

func TestIso8601(t *testing.T) {
	assert.Equal(t, "", Iso8601FromUnixSeconds(0))
	assert.Equal(t, "2024-05-06T10:00:00Z", Iso8601FromUnixSeconds(1714989600))
	assert.Equal(t, "", Iso8601(time.Time{}))
	assert.Equal(t, "2024-05-06T10:00:00Z", Iso8601(time.Date(2024, 5, 6, 12, 0, 0, 0, time.FixedZone("CEST", 7200))))
}

func TestNewBackOff(t *testing.T) {
	b := NewBackOff(time.Second, 4*time.Second, time.Minute, nil)
	assert.Equal(t, backoff.SystemClock, b.Clock)

	first := b.NextBackOff()
	assert.InDelta(t, float64(time.Second), float64(first), float64(200*time.Millisecond))
	for i := 0; i < 10; i++ {
		assert.LessOrEqual(t, b.NextBackOff(), time.Duration(float64(4*time.Second)*1.2))
	}
}
