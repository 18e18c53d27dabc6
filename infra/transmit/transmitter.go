// Package transmit sends control commands to the simulator over UDP.
package transmit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/core/monitoring"
	"github.com/kilianp07/simbridge/core/retry"
	"github.com/kilianp07/simbridge/infra/codec"
)

var (
	// ErrShortWrite is returned when fewer bytes than the payload were sent.
	ErrShortWrite = errors.New("short write")
	// ErrNoSocket is returned when the socket could not be (re)created.
	ErrNoSocket = errors.New("socket unavailable")
)

// Conn is the subset of a UDP socket used by the transmitter.
type Conn interface {
	Write(b []byte) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a socket to address.
type Dialer func(address string) (Conn, error)

// DialUDP is the default Dialer.
func DialUDP(address string) (Conn, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, raddr)
}

// Stats are the cumulative send counters.
type Stats struct {
	CommandsSent  uint64 `json:"commands_sent"`
	SendFailures  uint64 `json:"send_failures"`
	Clamped       uint64 `json:"clamped"`
	SocketRebuilt uint64 `json:"socket_rebuilt"`
}

// Option customises a Transmitter.
type Option func(*Transmitter)

// WithDialer replaces the socket factory.
func WithDialer(d Dialer) Option {
	return func(t *Transmitter) { t.dial = d }
}

// Transmitter serialises and sends commands with bounded retries. Send is
// meant to be called from a single goroutine; Stats may be read from any.
type Transmitter struct {
	cfg    Config
	codec  codec.Codec
	dial   Dialer
	policy retry.Policy
	log    logger.Logger
	conn   Conn

	sent     atomic.Uint64
	failures atomic.Uint64
	clamped  atomic.Uint64
	rebuilt  atomic.Uint64
}

// New builds a transmitter and opens its socket. A socket failure is
// logged, not returned; the next Send retries it.
func New(cfg Config, log logger.Logger, opts ...Option) (*Transmitter, error) {
	c, err := codec.New(cfg.Codec)
	if err != nil {
		return nil, err
	}
	t := &Transmitter{
		cfg:   cfg,
		codec: c,
		dial:  DialUDP,
		log:   log,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       cfg.RetryDelay(),
		},
	}
	for _, o := range opts {
		o(t)
	}
	if err := t.connect(); err != nil {
		t.log.Errorf("create egress socket to %s: %v", cfg.Address, err)
	} else {
		t.log.Infof("egress to %s (%s)", cfg.Address, c.Name())
	}
	return t, nil
}

func (t *Transmitter) connect() error {
	conn, err := t.dial(t.cfg.Address)
	if err != nil {
		return err
	}
	t.conn = conn
	return nil
}

// Send transmits cmd, clamping it first when out of range. It returns
// false after all attempts fail; SendFailures is then incremented once.
func (t *Transmitter) Send(ctx context.Context, cmd model.ControlCommand) bool {
	if !cmd.Valid() {
		t.clamped.Add(1)
		t.log.Warnf("clamping out-of-range command steer=%.3f throttle=%.3f brake=%.3f",
			cmd.Steer, cmd.Throttle, cmd.Brake)
		cmd = cmd.Clamp()
	}
	payload, err := codec.EncodeCommand(t.codec, cmd)
	if err != nil {
		t.failures.Add(1)
		t.log.Errorf("encode command: %v", err)
		return false
	}

	rebuilt := false
	err = t.policy.Do(ctx, func(attempt int) error {
		if t.conn == nil {
			if rebuilt {
				return retry.Permanent(ErrNoSocket)
			}
			rebuilt = true
			t.rebuilt.Add(1)
			t.log.Warnf("egress socket missing, recreating")
			if err := t.connect(); err != nil {
				return retry.Permanent(fmt.Errorf("%w: %v", ErrNoSocket, err))
			}
		}
		err := t.write(payload)
		if err != nil {
			t.log.Warnf("send attempt %d/%d failed: %v", attempt, t.cfg.MaxAttempts, err)
			if errors.Is(err, net.ErrClosed) {
				t.conn = nil
			}
		}
		return err
	})
	if err != nil {
		t.failures.Add(1)
		t.log.Errorf("send command failed: %v", err)
		monitoring.CaptureException(err, map[string]string{"module": "transmit", "address": t.cfg.Address})
		return false
	}
	t.sent.Add(1)
	return true
}

func (t *Transmitter) write(payload []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.cfg.Timeout()))
	n, err := t.conn.Write(payload)
	if err != nil {
		return err
	}
	if n != len(payload) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(payload))
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (t *Transmitter) Stats() Stats {
	return Stats{
		CommandsSent:  t.sent.Load(),
		SendFailures:  t.failures.Load(),
		Clamped:       t.clamped.Load(),
		SocketRebuilt: t.rebuilt.Load(),
	}
}

// Close releases the socket.
func (t *Transmitter) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
