package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoute(t *testing.T) {
	_, err := NewRoute(nil)
	assert.True(t, errors.Is(err, ErrEmptyRoute))

	_, err = NewRoute([]Waypoint{{X: math.NaN()}})
	assert.Error(t, err)

	pts := DefaultWaypoints()
	r, err := NewRoute(pts)
	require.NoError(t, err)
	pts[0].X = 99
	assert.Equal(t, 0.0, r.At(0).X, "route must not alias its input")
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, Waypoint{0, 0}, r.Last())
	assert.InDelta(t, 200, r.Length(), 1e-9)

	out := r.Points()
	out[1].Y = 12
	assert.Equal(t, 0.0, r.At(1).Y)
}

func TestWaypointGeometry(t *testing.T) {
	a := Waypoint{0, 0}
	b := Waypoint{3, 4}
	assert.InDelta(t, 5, a.DistanceTo(b), 1e-12)
	assert.InDelta(t, 5, b.DistanceTo(a), 1e-12)
	assert.InDelta(t, math.Pi/2, a.BearingTo(Waypoint{0, 10}), 1e-12)
	assert.InDelta(t, math.Pi, a.BearingTo(Waypoint{-1, 0}), 1e-12)
	assert.Equal(t, "(3.00, 4.00)", b.String())
}
