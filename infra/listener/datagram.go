// Package listener receives sensor data over UDP datagrams and a
// length-prefixed TCP stream and stores it into a handoff sink.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/infra/codec"
)

// maxDatagramSize is the largest UDP payload.
const maxDatagramSize = 65535

// Sink receives decoded samples.
type Sink interface {
	Set(model.SensorSample)
}

// Stats counts what a listener has seen.
type Stats struct {
	Received uint64 `json:"received"`
	Dropped  uint64 `json:"dropped"`
}

// DatagramListener decodes {type, timestamp, data} records from UDP.
type DatagramListener struct {
	cfg   Config
	codec codec.Codec
	sink  Sink
	log   logger.Logger

	mu   sync.Mutex
	conn *net.UDPConn

	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewDatagramListener validates cfg and returns an unbound listener.
func NewDatagramListener(cfg Config, sink Sink, log logger.Logger) (*DatagramListener, error) {
	c, err := codec.New(cfg.DatagramCodec)
	if err != nil {
		return nil, err
	}
	return &DatagramListener{cfg: cfg, codec: c, sink: sink, log: log}, nil
}

// Listen binds the socket.
func (l *DatagramListener) Listen() error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.DatagramAddress)
	if err != nil {
		return fmt.Errorf("resolve datagram address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen datagram: %w", err)
	}
	if err := conn.SetReadBuffer(l.cfg.ReadBufferBytes); err != nil {
		l.log.Warnf("set datagram read buffer to %d: %v", l.cfg.ReadBufferBytes, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.log.Infof("datagram listener bound on %s (%s)", conn.LocalAddr(), l.codec.Name())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *DatagramListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Serve reads datagrams until ctx is cancelled. Decode failures drop the
// datagram; socket errors back off and continue. The socket is closed on
// return.
func (l *DatagramListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return errors.New("datagram listener not bound")
	}
	defer func() { _ = conn.Close() }()

	buf := make([]byte, maxDatagramSize)
	timeout := l.cfg.readTimeout()
	for {
		if ctx.Err() != nil {
			l.log.Infof("datagram listener stopping")
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			l.log.Errorf("datagram read: %v", err)
			if !sleepCtx(ctx, l.cfg.errorBackoff()) {
				return nil
			}
			continue
		}
		l.handle(buf[:n], from)
	}
}

// Run binds the socket and serves until ctx is cancelled.
func (l *DatagramListener) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Close releases the socket. It is safe to call after Serve has returned.
func (l *DatagramListener) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Stats returns the counters.
func (l *DatagramListener) Stats() Stats {
	return Stats{Received: l.received.Load(), Dropped: l.dropped.Load()}
}

func (l *DatagramListener) handle(payload []byte, from *net.UDPAddr) {
	sample, err := codec.DecodeSample(l.codec, payload)
	if err != nil {
		l.dropped.Add(1)
		l.log.Warnf("dropping datagram from %v: %v", from, err)
		return
	}
	l.received.Add(1)
	l.sink.Set(sample)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
