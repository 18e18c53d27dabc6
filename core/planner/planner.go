// Package planner implements a Pure Pursuit route follower.
//
// A Planner is owned by a single goroutine. It consumes position fixes
// and produces one control command per fix while advancing through the
// route. Once the last waypoint is reached it stays completed and only
// emits stop commands.
package planner

import (
	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
)

// Phase is the planner lifecycle state.
type Phase int

const (
	Tracking Phase = iota
	Completed
)

func (p Phase) String() string {
	if p == Completed {
		return "completed"
	}
	return "tracking"
}

// Fix is a position update fed to the planner.
type Fix struct {
	Position  model.Waypoint
	Timestamp float64
	// Heading in radians from +x, nil when unknown.
	Heading *float64
}

// State is a snapshot of the planner.
type State struct {
	Phase        Phase          `json:"-"`
	Index        int            `json:"current_index"`
	Position     model.Waypoint `json:"position"`
	HasPosition  bool           `json:"has_position"`
	Heading      float64        `json:"heading"`
	Target       model.Waypoint `json:"target"`
	TargetIndex  int            `json:"target_index"`
	RouteLength  int            `json:"route_length"`
	LastSteer    float64        `json:"last_steer"`
	LastUpdateTS float64        `json:"last_update_ts"`
}

// Step is the outcome of a single Update.
type Step struct {
	Command model.ControlCommand
	// Reached is set when the update advanced past a waypoint.
	Reached      bool
	ReachedIndex int
	// Completed is set only on the update that finished the route.
	Completed bool
}

// Planner follows a route with Pure Pursuit.
type Planner struct {
	cfg   Config
	route model.Route
	log   logger.Logger
	state State
}

// New creates a planner for route. cfg must already carry defaults.
// Completion is terminal; driving the route again needs a new planner.
func New(cfg Config, route model.Route, log logger.Logger) *Planner {
	p := &Planner{cfg: cfg, route: route, log: log}
	p.state.RouteLength = route.Len()
	return p
}

// Route returns the route being followed.
func (p *Planner) Route() model.Route { return p.route }

// State returns a copy of the current state.
func (p *Planner) State() State { return p.state }

// Phase returns the lifecycle phase.
func (p *Planner) Phase() Phase { return p.state.Phase }

// Update ingests a fix and returns the command for it.
func (p *Planner) Update(fix Fix) Step {
	st := &p.state
	st.Position = fix.Position
	st.HasPosition = true
	st.LastUpdateTS = fix.Timestamp
	if fix.Heading != nil {
		st.Heading = *fix.Heading
	}

	if st.Phase == Completed {
		return Step{Command: model.StopCommand(fix.Timestamp)}
	}

	var step Step
	if st.Position.DistanceTo(p.route.At(st.Index)) < p.cfg.ReachedThreshold {
		step.Reached = true
		step.ReachedIndex = st.Index
		p.log.Infof("reached waypoint %d %s", st.Index, p.route.At(st.Index))
		st.Index++
		if st.Index >= p.route.Len() {
			st.Phase = Completed
			st.LastSteer = 0
			step.Completed = true
			step.Command = model.StopCommand(fix.Timestamp)
			p.log.Infof("route completed")
			return step
		}
	}

	target, ti := LookaheadPoint(st.Position, p.route, st.Index, p.cfg.LookaheadDistance)
	st.Target = target
	st.TargetIndex = ti

	if p.cfg.HeadingSource == HeadingPath && st.Index > 0 {
		st.Heading = p.route.At(st.Index - 1).BearingTo(p.route.At(st.Index))
	}

	steer := Steering(st.Position, st.Heading, target, p.cfg.Wheelbase, p.cfg.MaxSteerAngle)
	st.LastSteer = steer
	p.log.Debugw("pure pursuit", map[string]any{
		"index":   st.Index,
		"target":  ti,
		"steer":   steer,
		"heading": st.Heading,
	})
	step.Command = model.ControlCommand{
		Steer:     steer,
		Throttle:  p.cfg.Throttle,
		Brake:     0,
		Timestamp: fix.Timestamp,
	}
	return step
}
