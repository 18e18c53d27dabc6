package planner

import (
	"math"

	"github.com/kilianp07/simbridge/core/model"
)

const (
	// Waypoints closer than this fraction of the lookahead distance are
	// skipped when searching for the pursuit target.
	lookaheadFraction = 0.8
	// Below this distance the target is treated as reached and no
	// steering is applied.
	minTargetDistance = 0.1
)

// LookaheadPoint returns the first waypoint at or after from whose
// distance to pos is at least 0.8 times lookahead, together with its
// index. When none qualifies the final waypoint is returned.
func LookaheadPoint(pos model.Waypoint, route model.Route, from int, lookahead float64) (model.Waypoint, int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < route.Len(); i++ {
		if pos.DistanceTo(route.At(i)) >= lookahead*lookaheadFraction {
			return route.At(i), i
		}
	}
	return route.Last(), route.Len() - 1
}

// Steering computes the normalised Pure Pursuit steering command in
// [-1, 1] for a vehicle at pos with the given heading towards target.
func Steering(pos model.Waypoint, heading float64, target model.Waypoint, wheelbase, maxSteer float64) float64 {
	ld := pos.DistanceTo(target)
	if ld < minTargetDistance {
		return 0
	}
	alpha := model.NormalizeAngle(pos.BearingTo(target) - heading)
	delta := math.Atan2(2*wheelbase*math.Sin(alpha), ld)
	return math.Max(model.MinSteer, math.Min(model.MaxSteer, delta/maxSteer))
}
