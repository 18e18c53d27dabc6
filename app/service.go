// Package app wires listeners, the control loop and the egress into a
// running bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/simbridge/api/status"
	"github.com/kilianp07/simbridge/config"
	"github.com/kilianp07/simbridge/core/control"
	"github.com/kilianp07/simbridge/core/events"
	"github.com/kilianp07/simbridge/core/handoff"
	"github.com/kilianp07/simbridge/core/journal"
	coremetrics "github.com/kilianp07/simbridge/core/metrics"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/core/monitoring"
	"github.com/kilianp07/simbridge/core/planner"
	"github.com/kilianp07/simbridge/infra/listener"
	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/infra/metrics"
	"github.com/kilianp07/simbridge/infra/mqtt"
	"github.com/kilianp07/simbridge/infra/transmit"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

const busBuffer = 256

// Service owns every component of one bridge run.
type Service struct {
	cfg       *config.Config
	runID     string
	startedAt time.Time
	log       logger.Logger

	buf      *handoff.Buffer
	bus      *eventbus.Bus[events.Event]
	datagram *listener.DatagramListener
	stream   *listener.StreamListener
	tx       *transmit.Transmitter
	loop     *Loop
	sink     coremetrics.MetricsSink
	journal  journal.Store

	bridge  *mqtt.Bridge
	server  *metrics.Server
	started bool
}

// New builds the pipeline from cfg without binding any socket.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")
	runID := uuid.NewString()

	buf := handoff.New()
	dl, err := listener.NewDatagramListener(cfg.Listener, buf, logger.New("datagram-listener"))
	if err != nil {
		return nil, fmt.Errorf("datagram listener: %w", err)
	}
	sl := listener.NewStreamListener(cfg.Listener, buf, logger.New("stream-listener"))

	route, err := cfg.Planner.BuildRoute()
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	tx, err := transmit.New(cfg.Transmit, logger.New("transmitter"))
	if err != nil {
		return nil, fmt.Errorf("transmitter: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks, coremetrics.WithRunID(runID))
	if err != nil {
		_ = tx.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	var store journal.Store
	if cfg.Journal.Enabled {
		store, err = journal.Open(cfg.Journal)
		if err != nil {
			_ = tx.Close()
			if c, ok := sink.(interface{ Close() }); ok {
				c.Close()
			}
			return nil, fmt.Errorf("journal: %w", err)
		}
	}

	bus := eventbus.NewWithBuffer[events.Event](busBuffer)
	pl := planner.New(cfg.Planner, route, logger.New("planner"))
	loop := NewLoop(cfg.Control, cfg.Planner.HeadingSource, buf, pl,
		control.NewController(cfg.Control), tx, bus, logger.New("control-loop"))

	log.Infof("run %s: %d waypoints, %.1f m", runID, route.Len(), route.Length())
	return &Service{
		cfg:      cfg,
		runID:    runID,
		log:      log,
		buf:      buf,
		bus:      bus,
		datagram: dl,
		stream:   sl,
		tx:       tx,
		loop:     loop,
		sink:     sink,
		journal:  store,
	}, nil
}

// RunID identifies this run in logs, metrics and the status API.
func (s *Service) RunID() string { return s.runID }

// Buffer exposes the handoff buffer.
func (s *Service) Buffer() *handoff.Buffer { return s.buf }

// Bus exposes the event bus.
func (s *Service) Bus() eventbus.EventBus[events.Event] { return s.bus }

// Loop exposes the control loop.
func (s *Service) Loop() *Loop { return s.loop }

// Transmitter exposes the egress.
func (s *Service) Transmitter() *transmit.Transmitter { return s.tx }

// Start binds the listeners, the HTTP server and the MQTT bridge. Any
// failure here is fatal for the run.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	if err := s.datagram.Listen(); err != nil {
		return err
	}
	if err := s.stream.Listen(); err != nil {
		_ = s.datagram.Close()
		return err
	}
	if s.cfg.HTTP.Enabled {
		srv, err := metrics.NewServer(s.cfg.HTTP.Address, map[string]http.Handler{
			status.Path: status.NewStatusHandler(s),
		})
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("http server: %w", err)
		}
		s.server = srv
	}
	if s.cfg.MQTT.Enabled {
		b, err := mqtt.NewBridge(s.cfg.MQTT, s.buf, logger.New("mqtt-bridge"))
		if err != nil {
			s.closeListeners()
			if s.server != nil {
				_ = s.server.Close()
			}
			return fmt.Errorf("mqtt bridge: %w", err)
		}
		s.bridge = b
	}
	s.started = true
	s.startedAt = time.Now().UTC()
	return ctx.Err()
}

func (s *Service) closeListeners() {
	_ = s.datagram.Close()
	_ = s.stream.Close()
}

// DatagramAddr returns the bound datagram address.
func (s *Service) DatagramAddr() net.Addr { return s.datagram.Addr() }

// StreamAddr returns the bound stream address.
func (s *Service) StreamAddr() net.Addr { return s.stream.Addr() }

// HTTPAddr returns the bound HTTP address, or nil when disabled.
func (s *Service) HTTPAddr() net.Addr {
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Run starts every task and blocks until ctx is cancelled and all of
// them have returned.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	var wg sync.WaitGroup
	spawn := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer monitoring.Recover()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Errorf("%s: %v", name, err)
				monitoring.CaptureException(err, map[string]string{"task": name, "run_id": s.runID})
			}
		}()
	}
	spawn("datagram listener", func() error { return s.datagram.Serve(ctx) })
	spawn("stream listener", func() error { return s.stream.Serve(ctx) })
	collector := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.journal != nil {
		recorder := journal.StartRecorder(ctx, s.bus, s.journal, s.runID, logger.New("journal"))
		spawn("journal recorder", func() error { <-recorder; return nil })
	}
	if s.bridge != nil {
		forward := s.bridge.Forward(ctx, s.bus)
		spawn("mqtt forward", func() error { <-forward; return nil })
	}
	if s.server != nil {
		spawn("http server", func() error { return s.server.Serve(ctx) })
	}
	spawn("stats reporter", func() error { s.reportStats(ctx); return nil })
	spawn("control loop", func() error { s.loop.Run(ctx); return nil })

	<-ctx.Done()
	wg.Wait()
	<-collector
	s.logStats()
	return nil
}

func (s *Service) reportStats(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Stats.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.logStats()
			s.bus.Publish(events.StatsEvent{
				CommandsSent: st.CommandsSent,
				SendFailures: st.SendFailures,
				Time:         time.Now(),
			})
		}
	}
}

func (s *Service) logStats() transmit.Stats {
	st := s.tx.Stats()
	s.log.Infow("transmitter stats", map[string]any{
		"run_id":        s.runID,
		"commands_sent": st.CommandsSent,
		"send_failures": st.SendFailures,
		"clamped":       st.Clamped,
	})
	return st
}

// Snapshot implements status.Source.
func (s *Service) Snapshot() status.Snapshot {
	ls := s.loop.State()
	snap := status.Snapshot{
		RunID:       s.runID,
		StartedAt:   s.startedAt,
		Phase:       ls.Planner.Phase.String(),
		Planner:     ls.Planner,
		Transmitter: s.tx.Stats(),
		Datagram:    s.datagram.Stats(),
		Stream:      s.stream.Stats(),
		Samples:     make(map[string]uint64, model.NumSensorKinds),
		LastCommand: ls.LastCommand,
	}
	for k := model.SensorKind(0); k < model.NumSensorKinds; k++ {
		snap.Samples[k.String()] = s.buf.Writes(k)
	}
	if s.bridge != nil {
		st := s.bridge.Stats()
		snap.MQTT = &st
	}
	return snap
}

// Close releases every socket, the journal and the event bus.
func (s *Service) Close() error {
	if s.bridge != nil {
		s.bridge.Close()
	}
	s.bus.Close()
	s.closeListeners()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	var jerr error
	if s.journal != nil {
		jerr = s.journal.Close()
	}
	return errors.Join(s.tx.Close(), jerr)
}

// Journal exposes the command journal, or nil when disabled.
func (s *Service) Journal() journal.Store { return s.journal }
