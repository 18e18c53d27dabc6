package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kilianp07/simbridge/core/control"
	"github.com/kilianp07/simbridge/core/events"
	"github.com/kilianp07/simbridge/core/handoff"
	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/core/planner"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

// Sender delivers commands to the simulator.
type Sender interface {
	Send(ctx context.Context, cmd model.ControlCommand) bool
}

// LoopState is the part of the loop visible to other goroutines.
type LoopState struct {
	Planner     planner.State
	LastCommand *model.ControlCommand
	Speed       float64
	Ticks       uint64
}

// Loop is the single control task. It owns the planner, the controller
// and the sender; other goroutines only see published snapshots.
type Loop struct {
	cfg           control.Config
	headingSource string
	buf           *handoff.Buffer
	planner       *planner.Planner
	ctrl          *control.Controller
	tx            Sender
	bus           eventbus.EventBus[events.Event]
	log           logger.Logger

	imu       *model.IMU
	lastFixTS float64
	haveFix   bool
	ticks     uint64

	state atomic.Pointer[LoopState]
}

// NewLoop wires the control task. bus may be nil.
func NewLoop(cfg control.Config, headingSource string, buf *handoff.Buffer, p *planner.Planner,
	ctrl *control.Controller, tx Sender, bus eventbus.EventBus[events.Event], log logger.Logger) *Loop {
	l := &Loop{
		cfg:           cfg,
		headingSource: headingSource,
		buf:           buf,
		planner:       p,
		ctrl:          ctrl,
		tx:            tx,
		bus:           bus,
		log:           log,
	}
	l.state.Store(&LoopState{Planner: p.State()})
	return l
}

// State returns the latest published snapshot.
func (l *Loop) State() LoopState { return *l.state.Load() }

// Run polls the buffer every poll interval until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.PollInterval())
	defer ticker.Stop()
	l.log.Infof("control loop started (mode=%s, poll=%s)", l.cfg.Mode, l.cfg.PollInterval())
	for {
		select {
		case <-ctx.Done():
			l.log.Infof("control loop stopping")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick consumes whatever is pending and, when a GNSS fix is available,
// produces and sends one command. It reports whether a command was sent
// to the transmitter.
func (l *Loop) Tick(ctx context.Context) bool {
	now := time.Now()
	if s, ok := l.buf.Take(model.KindIMU); ok {
		imu := s.(model.IMU)
		l.imu = &imu
		l.publish(events.SensorEvent{Kind: model.KindIMU, Time: now})
	}
	if s, ok := l.buf.Take(model.KindSpeed); ok {
		l.ctrl.UpdateSpeed(s.(model.Speed).MetersPerSecond)
		l.publish(events.SensorEvent{Kind: model.KindSpeed, Time: now})
	}
	if s, ok := l.buf.Take(model.KindLiDAR); ok {
		l.publish(events.SensorEvent{Kind: model.KindLiDAR, Bytes: s.(model.LiDAR).Len(), Time: now})
	}
	s, ok := l.buf.Take(model.KindGNSS)
	if !ok {
		return false
	}
	g := s.(model.GNSS)
	l.publish(events.SensorEvent{Kind: model.KindGNSS, Time: now})

	step := l.planner.Update(planner.Fix{
		Position:  g.Position(),
		Timestamp: g.Timestamp,
		Heading:   l.heading(g),
	})
	if step.Reached {
		l.publish(events.PlannerEvent{
			Action:   events.WaypointReached,
			Index:    step.ReachedIndex,
			Waypoint: l.planner.Route().At(step.ReachedIndex),
			Time:     now,
		})
	}
	if step.Completed {
		l.ctrl.Reset()
		l.publish(events.PlannerEvent{
			Action:   events.RouteCompleted,
			Index:    step.ReachedIndex,
			Waypoint: l.planner.Route().Last(),
			Time:     now,
		})
	}

	cmd := step.Command
	if l.cfg.Mode == control.ModePID && l.planner.Phase() == planner.Tracking {
		cmd = l.ctrl.Compute(control.Target{
			Speed:     l.cfg.TargetSpeed,
			Steering:  cmd.Steer,
			Timestamp: cmd.Timestamp,
		}, l.dt(g.Timestamp))
	}
	l.lastFixTS, l.haveFix = g.Timestamp, true

	start := time.Now()
	sent := l.tx.Send(ctx, cmd)
	l.publish(events.CommandEvent{Command: cmd, Sent: sent, Latency: time.Since(start), Time: start})

	l.ticks++
	l.state.Store(&LoopState{
		Planner:     l.planner.State(),
		LastCommand: &cmd,
		Speed:       l.ctrl.CurrentSpeed(),
		Ticks:       l.ticks,
	})
	return true
}

// heading picks the heading handed to the planner. With the path source
// the planner replaces it by the segment tangent once past the first
// waypoint.
func (l *Loop) heading(g model.GNSS) *float64 {
	if h, ok := g.HeadingRadians(); ok {
		return &h
	}
	if l.headingSource == planner.HeadingSensor && l.imu != nil {
		h := l.imu.HeadingRadians()
		return &h
	}
	return nil
}

// dt is the time between fixes, or the configured default when the
// timestamps do not advance.
func (l *Loop) dt(ts float64) float64 {
	if l.haveFix && ts > l.lastFixTS {
		return ts - l.lastFixTS
	}
	return l.cfg.DefaultDT
}

func (l *Loop) publish(ev events.Event) {
	if l.bus != nil {
		l.bus.Publish(ev)
	}
}
