package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newController(t *testing.T, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := Config{}
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())
	return NewController(cfg)
}

func TestControllerAccelerates(t *testing.T) {
	c := newController(t, nil)
	cmd := c.Compute(Target{Speed: 5, Steering: 0.3, Timestamp: 2}, 0.05)
	assert.Greater(t, cmd.Throttle, 0.0)
	assert.LessOrEqual(t, cmd.Throttle, 1.0)
	assert.Equal(t, 0.0, cmd.Brake)
	assert.Equal(t, 0.3, cmd.Steer)
	assert.Equal(t, 2.0, cmd.Timestamp)
}

func TestControllerBrakesWhenTooFast(t *testing.T) {
	c := newController(t, nil)
	c.UpdateSpeed(12)
	assert.Equal(t, 12.0, c.CurrentSpeed())
	cmd := c.Compute(Target{Speed: 5}, 0.05)
	assert.Equal(t, 0.0, cmd.Throttle)
	assert.Greater(t, cmd.Brake, 0.0)
	assert.LessOrEqual(t, cmd.Brake, 1.0)
}

func TestControllerClampsSteering(t *testing.T) {
	c := newController(t, nil)
	cmd := c.Compute(Target{Speed: 0, Steering: 4}, 0.05)
	assert.Equal(t, 1.0, cmd.Steer)
	assert.True(t, cmd.Valid())
}

func TestControllerSteerFeedback(t *testing.T) {
	c := newController(t, func(cfg *Config) {
		cfg.SteerFeedback = true
		cfg.SteerPID = Gains{Kp: 0.5}
	})
	first := c.Compute(Target{Steering: 0.8}, 0.05)
	assert.InDelta(t, 0.4, first.Steer, 1e-12)
	second := c.Compute(Target{Steering: 0.8}, 0.05)
	assert.InDelta(t, 0.6, second.Steer, 1e-12)
}

func TestControllerReset(t *testing.T) {
	c := newController(t, nil)
	c.Compute(Target{Speed: 5}, 0.05)
	c.Compute(Target{Speed: 5}, 0.05)
	c.Reset()
	i, e := c.SpeedPID().State()
	assert.Zero(t, i)
	assert.Zero(t, e)
	i, e = c.SteerPID().State()
	assert.Zero(t, i)
	assert.Zero(t, e)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, ModeDirect, cfg.Mode)
	assert.Equal(t, 10, cfg.PollIntervalMS)
	assert.Equal(t, Gains{Kp: 0.5, Ki: 0.1, Kd: 0.05}, cfg.SpeedPID)
	assert.Equal(t, Gains{Kp: 1, Kd: 0.1}, cfg.SteerPID)
	assert.Equal(t, 0.05, cfg.DefaultDT)
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Mode = "fuzzy"
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.PollIntervalMS = -1
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.TargetSpeed = -1
	assert.Error(t, bad.Validate())
	bad = cfg
	bad.DefaultDT = -0.1
	assert.Error(t, bad.Validate())
}
