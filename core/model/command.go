package model

import "math"

// Actuation bounds accepted by the simulator.
const (
	MinSteer    = -1.0
	MaxSteer    = 1.0
	MinThrottle = 0.0
	MaxThrottle = 1.0
	MinBrake    = 0.0
	MaxBrake    = 1.0
)

// ControlCommand is a single actuation request sent to the simulator.
type ControlCommand struct {
	Steer     float64 `json:"steer" msgpack:"steer"`
	Throttle  float64 `json:"throttle" msgpack:"throttle"`
	Brake     float64 `json:"brake" msgpack:"brake"`
	Timestamp float64 `json:"timestamp" msgpack:"timestamp"`
}

// StopCommand returns the neutral full-brake command.
func StopCommand(ts float64) ControlCommand {
	return ControlCommand{Steer: 0, Throttle: 0, Brake: MaxBrake, Timestamp: ts}
}

// Valid reports whether every field is inside its range. NaN is never valid.
func (c ControlCommand) Valid() bool {
	return inRange(c.Steer, MinSteer, MaxSteer) &&
		inRange(c.Throttle, MinThrottle, MaxThrottle) &&
		inRange(c.Brake, MinBrake, MaxBrake)
}

// Clamp forces every field into its range. NaN steer and throttle become
// zero and a NaN brake becomes a full brake.
func (c ControlCommand) Clamp() ControlCommand {
	return ControlCommand{
		Steer:     clamp(c.Steer, MinSteer, MaxSteer, 0),
		Throttle:  clamp(c.Throttle, MinThrottle, MaxThrottle, 0),
		Brake:     clamp(c.Brake, MinBrake, MaxBrake, MaxBrake),
		Timestamp: c.Timestamp,
	}
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func clamp(v, lo, hi, nan float64) float64 {
	if math.IsNaN(v) {
		return nan
	}
	return math.Max(lo, math.Min(hi, v))
}
