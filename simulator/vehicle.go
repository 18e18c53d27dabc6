// Package simulator provides a simulator counterpart for closed-loop runs:
// a kinematic bicycle vehicle that consumes egress commands and reports
// GNSS and speed readings back to the pipeline.
package simulator

import (
	"math"
	"sync"

	"github.com/kilianp07/simbridge/core/model"
)

// Params describe the simulated vehicle.
type Params struct {
	Wheelbase     float64 `json:"wheelbase"`
	MaxSteerAngle float64 `json:"max_steer_angle"`
	// MaxAccel is the acceleration at full throttle in m/s².
	MaxAccel float64 `json:"max_accel"`
	// MaxDecel is the deceleration at full brake in m/s².
	MaxDecel float64 `json:"max_decel"`
	// Drag is a linear speed damping coefficient in 1/s.
	Drag     float64 `json:"drag"`
	MaxSpeed float64 `json:"max_speed"`
}

// DefaultParams matches the planner defaults.
func DefaultParams() Params {
	return Params{
		Wheelbase:     2.89,
		MaxSteerAngle: 0.52,
		MaxAccel:      3.0,
		MaxDecel:      8.0,
		Drag:          0.3,
		MaxSpeed:      15,
	}
}

// Pose is the vehicle state on the plane.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	Speed float64 `json:"speed"`
}

// Vehicle is a kinematic bicycle model.
type Vehicle struct {
	params Params

	mu   sync.Mutex
	pose Pose
	time float64
}

// NewVehicle places a vehicle at start with heading yaw (radians from +x).
func NewVehicle(p Params, start model.Waypoint, yaw float64) *Vehicle {
	return &Vehicle{params: p, pose: Pose{X: start.X, Y: start.Y, Yaw: yaw}}
}

// Step advances the model by dt seconds under cmd. Out-of-range commands
// are clamped.
func (v *Vehicle) Step(cmd model.ControlCommand, dt float64) Pose {
	cmd = cmd.Clamp()
	v.mu.Lock()
	defer v.mu.Unlock()
	if dt <= 0 {
		return v.pose
	}
	p := &v.pose

	accel := cmd.Throttle*v.params.MaxAccel - cmd.Brake*v.params.MaxDecel - v.params.Drag*p.Speed
	p.Speed = math.Max(0, math.Min(v.params.MaxSpeed, p.Speed+accel*dt))

	delta := cmd.Steer * v.params.MaxSteerAngle
	p.X += p.Speed * math.Cos(p.Yaw) * dt
	p.Y += p.Speed * math.Sin(p.Yaw) * dt
	p.Yaw = model.NormalizeAngle(p.Yaw + p.Speed/v.params.Wheelbase*math.Tan(delta)*dt)
	v.time += dt
	return *p
}

// Pose returns the current state.
func (v *Vehicle) Pose() Pose {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pose
}

// Time returns the simulated seconds elapsed.
func (v *Vehicle) Time() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.time
}

// GNSS reports the pose as a fix. Longitude carries x and latitude y, the
// same flat projection the planner applies.
func (v *Vehicle) GNSS() model.GNSS {
	v.mu.Lock()
	defer v.mu.Unlock()
	heading := v.pose.Yaw * 180 / math.Pi
	return model.GNSS{
		Timestamp: v.time,
		Latitude:  v.pose.Y,
		Longitude: v.pose.X,
		Heading:   &heading,
	}
}

// Speed reports the current speed.
func (v *Vehicle) Speed() model.Speed {
	v.mu.Lock()
	defer v.mu.Unlock()
	return model.Speed{Timestamp: v.time, MetersPerSecond: v.pose.Speed}
}

// IMU reports the compass heading, clockwise from north.
func (v *Vehicle) IMU() model.IMU {
	v.mu.Lock()
	defer v.mu.Unlock()
	return model.IMU{
		Timestamp:     v.time,
		Accelerometer: [3]float64{0, 0, 9.81},
		Compass:       model.NormalizeAngle(math.Pi/2 - v.pose.Yaw),
	}
}
