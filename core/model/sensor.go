package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// SensorKind identifies the handoff slot a sample belongs to.
type SensorKind int

const (
	KindGNSS SensorKind = iota
	KindIMU
	KindLiDAR
	KindSpeed

	// NumSensorKinds is the number of distinct sensor slots.
	NumSensorKinds
)

var sensorKindNames = [NumSensorKinds]string{"gnss", "imu", "lidar", "speed"}

var (
	// ErrUnknownSensorType is returned when a record names a type that
	// has no slot.
	ErrUnknownSensorType = errors.New("unknown sensor type")
	// ErrMissingField is returned when a record lacks a required field.
	ErrMissingField = errors.New("missing required field")
)

func (k SensorKind) String() string {
	if k < 0 || k >= NumSensorKinds {
		return fmt.Sprintf("SensorKind(%d)", int(k))
	}
	return sensorKindNames[k]
}

// ParseSensorKind maps a wire type name to its kind.
func ParseSensorKind(s string) (SensorKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range sensorKindNames {
		if n == name {
			return SensorKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// SensorSample is implemented by every reading the handoff buffer accepts.
type SensorSample interface {
	Kind() SensorKind
}

// GNSS is a satellite position fix.
type GNSS struct {
	Timestamp float64
	Latitude  float64
	Longitude float64
	Altitude  float64
	// Heading in degrees, nil when the producer did not send one.
	Heading *float64
}

func (GNSS) Kind() SensorKind { return KindGNSS }

// Position projects the fix onto the planning plane. Longitude is the x
// axis and latitude the y axis; no geodetic projection is applied.
func (g GNSS) Position() Waypoint {
	return Waypoint{X: g.Longitude, Y: g.Latitude}
}

// HeadingRadians returns the reported heading converted to radians.
func (g GNSS) HeadingRadians() (float64, bool) {
	if g.Heading == nil {
		return 0, false
	}
	return *g.Heading * math.Pi / 180, true
}

// IMU is an inertial measurement.
type IMU struct {
	Timestamp     float64
	Accelerometer [3]float64
	Gyroscope     [3]float64
	// Compass in radians, clockwise from north.
	Compass float64
}

func (IMU) Kind() SensorKind { return KindIMU }

// HeadingRadians converts the compass reading to the planner's frame,
// counter-clockwise from the +x axis.
func (i IMU) HeadingRadians() float64 {
	return NormalizeAngle(math.Pi/2 - i.Compass)
}

// LiDAR is an opaque point cloud payload received over the stream ingress.
type LiDAR struct {
	Payload []byte
}

func (LiDAR) Kind() SensorKind { return KindLiDAR }

// Len returns the payload size in bytes.
func (l LiDAR) Len() int { return len(l.Payload) }

// Speed is the measured longitudinal speed of the vehicle.
type Speed struct {
	Timestamp       float64
	MetersPerSecond float64
}

func (Speed) Kind() SensorKind { return KindSpeed }

// NormalizeAngle wraps a into [-pi, pi].
func NormalizeAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}
