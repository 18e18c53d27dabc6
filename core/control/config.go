package control

import (
	"fmt"
	"time"
)

// Loop modes.
const (
	// ModeDirect forwards the planner command unchanged.
	ModeDirect = "direct"
	// ModePID regulates speed towards TargetSpeed with the speed PID.
	ModePID = "pid"
)

// Config defines the control loop and regulator settings.
type Config struct {
	Mode           string  `json:"mode"`
	PollIntervalMS int     `json:"poll_interval_ms"`
	TargetSpeed    float64 `json:"target_speed"`
	DefaultDT      float64 `json:"default_dt"`
	SpeedPID       Gains   `json:"speed_pid"`
	SteerPID       Gains   `json:"steer_pid"`
	SteerFeedback  bool    `json:"steer_feedback"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDirect
	}
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = 10
	}
	if c.TargetSpeed == 0 {
		c.TargetSpeed = 5
	}
	if c.DefaultDT == 0 {
		c.DefaultDT = 0.05
	}
	if c.SpeedPID == (Gains{}) {
		c.SpeedPID = Gains{Kp: 0.5, Ki: 0.1, Kd: 0.05}
	}
	if c.SteerPID == (Gains{}) {
		c.SteerPID = Gains{Kp: 1.0, Ki: 0, Kd: 0.1}
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeDirect, ModePID:
	default:
		return fmt.Errorf("control: unknown mode %q", c.Mode)
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("control: poll_interval_ms must be positive")
	}
	if c.TargetSpeed < 0 {
		return fmt.Errorf("control: target_speed must not be negative")
	}
	if c.DefaultDT <= 0 {
		return fmt.Errorf("control: default_dt must be positive")
	}
	return nil
}

// PollInterval returns the loop period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
