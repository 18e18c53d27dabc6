package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrEmptyRoute is returned when a route has no waypoints.
var ErrEmptyRoute = errors.New("route must contain at least one waypoint")

// Waypoint is a point on the planning plane.
type Waypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec returns the waypoint as a gonum vector.
func (w Waypoint) Vec() r2.Vec { return r2.Vec{X: w.X, Y: w.Y} }

// DistanceTo returns the Euclidean distance between w and o.
func (w Waypoint) DistanceTo(o Waypoint) float64 {
	return r2.Norm(r2.Sub(o.Vec(), w.Vec()))
}

// BearingTo returns the angle of the segment w->o measured from +x.
func (w Waypoint) BearingTo(o Waypoint) float64 {
	d := r2.Sub(o.Vec(), w.Vec())
	return math.Atan2(d.Y, d.X)
}

func (w Waypoint) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", w.X, w.Y)
}

// Route is an immutable ordered list of waypoints.
type Route struct {
	points []Waypoint
}

// DefaultWaypoints is the square loop driven when no route is configured.
func DefaultWaypoints() []Waypoint {
	return []Waypoint{{0, 0}, {50, 0}, {50, 50}, {0, 50}, {0, 0}}
}

// NewRoute copies points into a route.
func NewRoute(points []Waypoint) (Route, error) {
	if len(points) == 0 {
		return Route{}, ErrEmptyRoute
	}
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return Route{}, fmt.Errorf("waypoint %d is not finite", i)
		}
	}
	cp := make([]Waypoint, len(points))
	copy(cp, points)
	return Route{points: cp}, nil
}

// Len returns the number of waypoints.
func (r Route) Len() int { return len(r.points) }

// At returns waypoint i.
func (r Route) At(i int) Waypoint { return r.points[i] }

// Last returns the final waypoint.
func (r Route) Last() Waypoint { return r.points[len(r.points)-1] }

// Points returns a copy of the waypoints.
func (r Route) Points() []Waypoint {
	cp := make([]Waypoint, len(r.points))
	copy(cp, r.points)
	return cp
}

// Length returns the total polyline length.
func (r Route) Length() float64 {
	var total float64
	for i := 1; i < len(r.points); i++ {
		total += r.points[i-1].DistanceTo(r.points[i])
	}
	return total
}
