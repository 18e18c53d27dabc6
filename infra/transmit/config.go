package transmit

import (
	"fmt"
	"time"

	"github.com/kilianp07/simbridge/infra/codec"
)

// Config defines the actuation egress.
type Config struct {
	Address      string `json:"address"`
	MaxAttempts  int    `json:"max_attempts"`
	RetryDelayMS int    `json:"retry_delay_ms"`
	TimeoutMS    int    `json:"timeout_ms"`
	Codec        string `json:"codec"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:23456"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelayMS == 0 {
		c.RetryDelayMS = 100
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 1000
	}
	if c.Codec == "" {
		c.Codec = codec.NameMsgPack
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("transmit: address is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("transmit: max_attempts must be at least 1")
	}
	if c.RetryDelayMS < 0 {
		return fmt.Errorf("transmit: retry_delay_ms must not be negative")
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("transmit: timeout_ms must be positive")
	}
	if _, err := codec.New(c.Codec); err != nil {
		return fmt.Errorf("transmit: %w", err)
	}
	return nil
}

// RetryDelay returns the pause between attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// Timeout returns the per-write deadline.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}
