package listener

import (
	"fmt"
	"time"

	"github.com/kilianp07/simbridge/infra/codec"
)

// DefaultMaxFrameBytes bounds a single stream frame.
const DefaultMaxFrameBytes = 16 << 20

// Config defines both ingress sockets.
type Config struct {
	DatagramAddress string `json:"datagram_address"`
	DatagramCodec   string `json:"datagram_codec"`
	StreamAddress   string `json:"stream_address"`
	ReadTimeoutMS   int    `json:"read_timeout_ms"`
	ErrorBackoffMS  int    `json:"error_backoff_ms"`
	MaxFrameBytes   int    `json:"max_frame_bytes"`
	ReadBufferBytes int    `json:"read_buffer_bytes"`
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.DatagramAddress == "" {
		c.DatagramAddress = "0.0.0.0:12345"
	}
	if c.DatagramCodec == "" {
		c.DatagramCodec = codec.NameJSON
	}
	if c.StreamAddress == "" {
		c.StreamAddress = "0.0.0.0:5005"
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = 100
	}
	if c.ErrorBackoffMS == 0 {
		c.ErrorBackoffMS = 1000
	}
	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if c.ReadBufferBytes == 0 {
		c.ReadBufferBytes = 64 * 1024
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	if c.ReadTimeoutMS <= 0 {
		return fmt.Errorf("listener: read_timeout_ms must be positive")
	}
	if c.ErrorBackoffMS < 0 {
		return fmt.Errorf("listener: error_backoff_ms must not be negative")
	}
	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("listener: max_frame_bytes must be positive")
	}
	if c.ReadBufferBytes <= 0 {
		return fmt.Errorf("listener: read_buffer_bytes must be positive")
	}
	if _, err := codec.New(c.DatagramCodec); err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	return nil
}

func (c Config) readTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c Config) errorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffMS) * time.Millisecond
}
