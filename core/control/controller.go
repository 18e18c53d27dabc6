// Package control turns a speed and steering target into actuator
// commands using two PID regulators.
package control

import (
	"math"

	"github.com/kilianp07/simbridge/core/model"
)

// Target is the set point handed to the controller.
type Target struct {
	Speed     float64
	Steering  float64
	Timestamp float64
}

// Controller owns one PID per axis. It is used from the control loop only.
type Controller struct {
	speed         *PID
	steer         *PID
	steerFeedback bool
	currentSpeed  float64
	lastSteer     float64
}

// NewController builds a controller from cfg. cfg must carry defaults.
func NewController(cfg Config) *Controller {
	return &Controller{
		speed:         NewPID(cfg.SpeedPID),
		steer:         NewPID(cfg.SteerPID),
		steerFeedback: cfg.SteerFeedback,
	}
}

// UpdateSpeed records the latest measured speed in m/s.
func (c *Controller) UpdateSpeed(v float64) {
	c.currentSpeed = v
}

// CurrentSpeed returns the last measured speed.
func (c *Controller) CurrentSpeed() float64 { return c.currentSpeed }

// Compute produces a command tracking t over a step of dt seconds. A
// positive speed output becomes throttle and a negative one brake.
func (c *Controller) Compute(t Target, dt float64) model.ControlCommand {
	out := c.speed.Compute(t.Speed, c.currentSpeed, dt)
	var throttle, brake float64
	if out > 0 {
		throttle = math.Min(out, model.MaxThrottle)
	} else {
		brake = math.Min(-out, model.MaxBrake)
	}

	steer := t.Steering
	if c.steerFeedback {
		steer = c.lastSteer + c.steer.Compute(t.Steering, c.lastSteer, dt)
	}
	cmd := model.ControlCommand{
		Steer:     steer,
		Throttle:  throttle,
		Brake:     brake,
		Timestamp: t.Timestamp,
	}.Clamp()
	c.lastSteer = cmd.Steer
	return cmd
}

// Reset clears the regulator state of both axes.
func (c *Controller) Reset() {
	c.speed.Reset()
	c.steer.Reset()
	c.lastSteer = 0
}

// SpeedPID exposes the speed regulator for inspection.
func (c *Controller) SpeedPID() *PID { return c.speed }

// SteerPID exposes the steering regulator for inspection.
func (c *Controller) SteerPID() *PID { return c.steer }
