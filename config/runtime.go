package config

import (
	"fmt"
	"time"
)

// StatsConfig controls the periodic transmitter statistics report.
type StatsConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
}

func (c *StatsConfig) SetDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = 10
	}
}

func (c StatsConfig) Validate() error {
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("stats: interval_seconds must be positive")
	}
	return nil
}

// Interval returns the report period.
func (c StatsConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// HTTPConfig controls the /metrics and /api/status server.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":2112"
	}
}

func (c HTTPConfig) Validate() error {
	if c.Enabled && c.Address == "" {
		return fmt.Errorf("http: address is required when enabled")
	}
	return nil
}
