package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/logger"
)

func newPlanner(t *testing.T, cfg Config) *Planner {
	t.Helper()
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	r, err := cfg.BuildRoute()
	require.NoError(t, err)
	return New(cfg, r, logger.NopLogger{})
}

func fixAt(x, y, ts float64) Fix {
	return Fix{Position: model.Waypoint{X: x, Y: y}, Timestamp: ts}
}

func TestFirstUpdateReachesStart(t *testing.T) {
	p := newPlanner(t, Config{})
	step := p.Update(fixAt(0, 0, 1))

	assert.True(t, step.Reached)
	assert.Equal(t, 0, step.ReachedIndex)
	assert.False(t, step.Completed)
	assert.Equal(t, 1, p.State().Index)
	assert.Equal(t, 0.4, step.Command.Throttle)
	assert.Equal(t, 0.0, step.Command.Brake)
	assert.Equal(t, 1.0, step.Command.Timestamp)
	// Path tangent of segment 0->1 is +x, target (50,0) is dead ahead.
	assert.InDelta(t, 0, step.Command.Steer, 1e-12)
}

func TestDefaultLoopCompletes(t *testing.T) {
	p := newPlanner(t, Config{})
	route := p.Route()

	var ts float64
	completed := 0
	for i := 0; i < route.Len(); i++ {
		wp := route.At(i)
		ts++
		step := p.Update(fixAt(wp.X+0.5, wp.Y, ts))
		require.True(t, step.Reached, "waypoint %d", i)
		assert.True(t, step.Command.Valid())
		if step.Completed {
			completed++
		}
		assert.LessOrEqual(t, p.State().Index, route.Len())
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, Completed, p.Phase())
	assert.Equal(t, route.Len(), p.State().Index)

	// Completed is absorbing.
	for i := 0; i < 3; i++ {
		step := p.Update(fixAt(100, 100, ts+float64(i)))
		assert.Equal(t, model.StopCommand(ts+float64(i)), step.Command)
		assert.False(t, step.Completed)
		assert.False(t, step.Reached)
	}
	assert.Equal(t, route.Len(), p.State().Index)
}

func TestIndexMonotonic(t *testing.T) {
	p := newPlanner(t, Config{})
	prev := 0
	positions := [][2]float64{{0, 0}, {30, 0}, {10, 0}, {50, 0}, {0, 0}, {50, 49}}
	for i, pos := range positions {
		p.Update(fixAt(pos[0], pos[1], float64(i)))
		idx := p.State().Index
		assert.GreaterOrEqual(t, idx, prev)
		assert.LessOrEqual(t, idx-prev, 1, "at most one waypoint per update")
		prev = idx
	}
	assert.Equal(t, 3, prev)
}

func TestSingleWaypointRoute(t *testing.T) {
	p := newPlanner(t, Config{Route: [][]float64{{10, 10}}})

	step := p.Update(fixAt(0, 0, 1))
	assert.False(t, step.Reached)
	assert.Equal(t, Tracking, p.Phase())

	step = p.Update(fixAt(10, 10.5, 2))
	assert.True(t, step.Completed)
	assert.Equal(t, model.StopCommand(2), step.Command)
}

func TestTargetBehindTurnsAround(t *testing.T) {
	p := newPlanner(t, Config{Route: [][]float64{{0, 0}, {-20, 0}}})
	p.Update(fixAt(0.5, 0, 1))
	// Heading now follows the path tangent pointing -x, so a target at -x
	// needs no correction.
	step := p.Update(fixAt(-3, 0, 2))
	assert.InDelta(t, math.Pi, math.Abs(p.State().Heading), 1e-12)
	assert.InDelta(t, 0, step.Command.Steer, 1e-9)
}

func TestSensorHeadingSource(t *testing.T) {
	p := newPlanner(t, Config{HeadingSource: HeadingSensor, Route: [][]float64{{0, 0}, {0, 20}}})
	h := 0.0
	step := p.Update(Fix{Position: model.Waypoint{}, Heading: &h, Timestamp: 1})
	// Facing +x with the target straight up the y axis: turn left.
	assert.Greater(t, step.Command.Steer, 0.5)

	up := math.Pi / 2
	step = p.Update(Fix{Position: model.Waypoint{Y: 2.5}, Heading: &up, Timestamp: 2})
	assert.InDelta(t, 0, step.Command.Steer, 1e-9)
}

func TestPathHeadingIgnoresSensorAfterFirstWaypoint(t *testing.T) {
	p := newPlanner(t, Config{Route: [][]float64{{0, 0}, {20, 0}}})
	h := math.Pi / 2
	p.Update(Fix{Position: model.Waypoint{}, Heading: &h, Timestamp: 1})
	assert.InDelta(t, 0, p.State().Heading, 1e-12)
}

func TestCompletionIsTerminal(t *testing.T) {
	p := newPlanner(t, Config{Route: [][]float64{{0, 0}}})
	require.True(t, p.Update(fixAt(0, 0, 1)).Completed)

	// later fixes far from the route keep stopping the vehicle
	for i, ts := range []float64{2, 3, 4} {
		step := p.Update(fixAt(50, float64(i)*10, ts))
		assert.Equal(t, Completed, p.Phase())
		assert.False(t, step.Completed, "completion is reported once")
		assert.Equal(t, model.StopCommand(ts), step.Command)
	}
	assert.Equal(t, 1, p.State().Index)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())

	bad := []func(*Config){
		func(c *Config) { c.LookaheadDistance = -1 },
		func(c *Config) { c.Wheelbase = -1 },
		func(c *Config) { c.ReachedThreshold = -2 },
		func(c *Config) { c.Throttle = 1.5 },
		func(c *Config) { c.MaxSteerAngle = 2 },
		func(c *Config) { c.HeadingSource = "compass" },
		func(c *Config) { c.Route = [][]float64{{1, 2, 3}} },
	}
	for i, mutate := range bad {
		c := cfg
		mutate(&c)
		assert.Error(t, c.Validate(), "case %d", i)
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "tracking", Tracking.String())
	assert.Equal(t, "completed", Completed.String())
}
