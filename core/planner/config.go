package planner

import (
	"fmt"
	"math"

	"github.com/kilianp07/simbridge/core/model"
)

// Heading sources.
const (
	// HeadingPath derives heading from the active route segment once the
	// first waypoint has been reached.
	HeadingPath = "path"
	// HeadingSensor uses the reported GNSS or IMU heading only.
	HeadingSensor = "sensor"
)

// Config holds the Pure Pursuit tuning.
type Config struct {
	LookaheadDistance float64     `json:"lookahead_distance"`
	Wheelbase         float64     `json:"wheelbase"`
	ReachedThreshold  float64     `json:"reached_threshold"`
	Throttle          float64     `json:"throttle"`
	MaxSteerAngle     float64     `json:"max_steer_angle"`
	HeadingSource     string      `json:"heading_source"`
	Route             [][]float64 `json:"route"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.LookaheadDistance == 0 {
		c.LookaheadDistance = 5.0
	}
	if c.Wheelbase == 0 {
		c.Wheelbase = 2.89
	}
	if c.ReachedThreshold == 0 {
		c.ReachedThreshold = 2.0
	}
	if c.Throttle == 0 {
		c.Throttle = 0.4
	}
	if c.MaxSteerAngle == 0 {
		c.MaxSteerAngle = 0.52
	}
	if c.HeadingSource == "" {
		c.HeadingSource = HeadingPath
	}
}

// Validate checks the tuning is usable.
func (c Config) Validate() error {
	if c.LookaheadDistance <= 0 {
		return fmt.Errorf("planner: lookahead_distance must be positive")
	}
	if c.Wheelbase <= 0 {
		return fmt.Errorf("planner: wheelbase must be positive")
	}
	if c.ReachedThreshold <= 0 {
		return fmt.Errorf("planner: reached_threshold must be positive")
	}
	if c.Throttle < model.MinThrottle || c.Throttle > model.MaxThrottle {
		return fmt.Errorf("planner: throttle must be within [0,1]")
	}
	if c.MaxSteerAngle <= 0 || c.MaxSteerAngle >= math.Pi/2 {
		return fmt.Errorf("planner: max_steer_angle must be within (0, pi/2)")
	}
	switch c.HeadingSource {
	case HeadingPath, HeadingSensor:
	default:
		return fmt.Errorf("planner: unknown heading_source %q", c.HeadingSource)
	}
	_, err := c.Waypoints()
	return err
}

// Waypoints returns the configured route, or the default loop when none
// is configured.
func (c Config) Waypoints() ([]model.Waypoint, error) {
	if len(c.Route) == 0 {
		return model.DefaultWaypoints(), nil
	}
	pts := make([]model.Waypoint, 0, len(c.Route))
	for i, p := range c.Route {
		if len(p) != 2 {
			return nil, fmt.Errorf("planner: route point %d must have 2 coordinates, got %d", i, len(p))
		}
		pts = append(pts, model.Waypoint{X: p[0], Y: p[1]})
	}
	return pts, nil
}

// BuildRoute validates the waypoints and returns the route.
func (c Config) BuildRoute() (model.Route, error) {
	pts, err := c.Waypoints()
	if err != nil {
		return model.Route{}, err
	}
	return model.NewRoute(pts)
}
