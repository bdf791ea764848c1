package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	// Patna to Gaya, roughly 90-100 km apart.
	patna := Point{Latitude: 25.5941, Longitude: 85.1376}
	gaya := Point{Latitude: 24.7914, Longitude: 85.0002}

	d := DistanceKm(patna, gaya)
	assert.InDelta(t, 90.5, d, 5)

	// Symmetric and zero on identity.
	assert.InDelta(t, d, DistanceKm(gaya, patna), 1e-9)
	assert.Zero(t, DistanceKm(patna, patna))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Latitude: 0, Longitude: 0}.Valid())
	assert.True(t, Point{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Point{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Point{Latitude: 0, Longitude: -181}.Valid())
}
