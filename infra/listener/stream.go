package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
)

// StreamListener accepts TCP connections carrying 4-byte big-endian
// length-prefixed frames. Each frame is stored as a LiDAR sample.
type StreamListener struct {
	cfg  Config
	sink Sink
	log  logger.Logger

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// NewStreamListener returns an unbound listener.
func NewStreamListener(cfg Config, sink Sink, log logger.Logger) *StreamListener {
	return &StreamListener{cfg: cfg, sink: sink, log: log, conns: make(map[net.Conn]struct{})}
}

// Listen binds the socket.
func (l *StreamListener) Listen() error {
	ln, err := net.Listen("tcp", l.cfg.StreamAddress)
	if err != nil {
		return fmt.Errorf("listen stream: %w", err)
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	l.log.Infof("stream listener bound on %s", ln.Addr())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *StreamListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled, then closes the
// listening socket and every open connection and waits for their
// goroutines.
func (l *StreamListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return errors.New("stream listener not bound")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
		l.closeConns()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.wg.Wait()
				l.log.Infof("stream listener stopping")
				return nil
			}
			l.log.Errorf("stream accept: %v", err)
			if !sleepCtx(ctx, l.cfg.errorBackoff()) {
				l.wg.Wait()
				return nil
			}
			continue
		}
		if !l.track(conn) {
			_ = conn.Close()
			continue
		}
		l.wg.Add(1)
		go l.handle(ctx, conn)
	}
}

// Run binds the socket and serves until ctx is cancelled.
func (l *StreamListener) Run(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}
	return l.Serve(ctx)
}

// Close releases the listening socket. It is safe to call after Serve
// has returned.
func (l *StreamListener) Close() error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Stats returns the counters. Received counts frames and Dropped counts
// connections terminated by a protocol error.
func (l *StreamListener) Stats() Stats {
	return Stats{Received: l.frames.Load(), Dropped: l.dropped.Load()}
}

func (l *StreamListener) handle(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer l.untrack(conn)
	peer := conn.RemoteAddr()
	l.log.Infof("stream connection from %v", peer)

	r := deadlineReader{ctx: ctx, conn: conn, timeout: l.cfg.readTimeout()}
	for {
		payload, err := ReadFrame(r, l.cfg.MaxFrameBytes)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil, errors.Is(err, net.ErrClosed):
				l.log.Infof("stream connection from %v closed", peer)
			default:
				l.dropped.Add(1)
				l.log.Warnf("stream connection from %v terminated: %v", peer, err)
			}
			return
		}
		l.frames.Add(1)
		l.sink.Set(model.LiDAR{Payload: payload})
	}
}

func (l *StreamListener) track(c net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conns == nil {
		return false
	}
	l.conns[c] = struct{}{}
	return true
}

func (l *StreamListener) untrack(c net.Conn) {
	_ = c.Close()
	l.mu.Lock()
	if l.conns != nil {
		delete(l.conns, c)
	}
	l.mu.Unlock()
}

func (l *StreamListener) closeConns() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for c := range l.conns {
		_ = c.Close()
	}
	l.conns = nil
}
