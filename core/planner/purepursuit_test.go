package planner

import (
	"math"
	"testing"

	"github.com/kilianp07/simbridge/core/model"
)

func mustRoute(t *testing.T, pts ...model.Waypoint) model.Route {
	t.Helper()
	r, err := model.NewRoute(pts)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	return r
}

func TestLookaheadPoint(t *testing.T) {
	r := mustRoute(t, model.Waypoint{X: 0, Y: 0}, model.Waypoint{X: 2, Y: 0}, model.Waypoint{X: 10, Y: 0}, model.Waypoint{X: 20, Y: 0})
	pos := model.Waypoint{X: 0, Y: 0}

	// 0.8 * 5 = 4, so the waypoint at x=2 is skipped.
	wp, idx := LookaheadPoint(pos, r, 0, 5)
	if idx != 2 || wp.X != 10 {
		t.Fatalf("expected index 2, got %d %v", idx, wp)
	}

	// Nothing far enough: fall back to the last waypoint.
	wp, idx = LookaheadPoint(model.Waypoint{X: 19, Y: 0}, r, 3, 5)
	if idx != 3 || wp.X != 20 {
		t.Fatalf("expected last waypoint, got %d %v", idx, wp)
	}

	// Negative start is treated as zero.
	if _, idx = LookaheadPoint(pos, r, -4, 5); idx != 2 {
		t.Fatalf("expected index 2, got %d", idx)
	}
}

func TestSteeringSign(t *testing.T) {
	origin := model.Waypoint{}
	left := Steering(origin, 0, model.Waypoint{X: 5, Y: 5}, 2.89, 0.52)
	if left <= 0 {
		t.Fatalf("target to the left must steer positive, got %v", left)
	}
	right := Steering(origin, 0, model.Waypoint{X: 5, Y: -5}, 2.89, 0.52)
	if right >= 0 {
		t.Fatalf("target to the right must steer negative, got %v", right)
	}
	if math.Abs(left+right) > 1e-12 {
		t.Fatalf("steering not symmetric: %v %v", left, right)
	}
}

func TestSteeringStraightAhead(t *testing.T) {
	if s := Steering(model.Waypoint{}, 0, model.Waypoint{X: 10}, 2.89, 0.52); math.Abs(s) > 1e-12 {
		t.Fatalf("expected zero steer, got %v", s)
	}
}

func TestSteeringTargetTooClose(t *testing.T) {
	if s := Steering(model.Waypoint{}, 0, model.Waypoint{X: 0.05, Y: 0.05}, 2.89, 0.52); s != 0 {
		t.Fatalf("expected zero steer, got %v", s)
	}
}

func TestSteeringBounded(t *testing.T) {
	for _, h := range []float64{-3, -1.5, 0, 1.5, 3} {
		for _, tgt := range []model.Waypoint{{X: 1, Y: 3}, {X: -4, Y: 0.5}, {X: 0.2, Y: -8}} {
			s := Steering(model.Waypoint{}, h, tgt, 2.89, 0.52)
			if s < -1 || s > 1 || math.IsNaN(s) {
				t.Fatalf("steer out of range: %v", s)
			}
		}
	}
}

func TestSteeringWrapsAngle(t *testing.T) {
	// Heading just below +pi and target just above -pi differ by a small
	// left turn, not a full revolution.
	pos := model.Waypoint{}
	target := model.Waypoint{X: -10, Y: -0.5}
	s := Steering(pos, math.Pi-0.01, target, 2.89, 0.52)
	if s <= 0 || s > 0.5 {
		t.Fatalf("expected small positive steer, got %v", s)
	}
}
