package metrics

import (
	"context"

	"github.com/kilianp07/simbridge/core/events"
	coremetrics "github.com/kilianp07/simbridge/core/metrics"
	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s event: %v", ev.Topic(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.CommandEvent:
		return sink.RecordCommand(coremetrics.CommandRecord{
			Steer:    e.Command.Steer,
			Throttle: e.Command.Throttle,
			Brake:    e.Command.Brake,
			Sent:     e.Sent,
			Latency:  e.Latency,
			Time:     e.Time,
		})
	case events.PlannerEvent:
		if r, ok := sink.(coremetrics.PlannerRecorder); ok {
			return r.RecordPlanner(coremetrics.PlannerRecord{
				Action: string(e.Action),
				Index:  e.Index,
				X:      e.Waypoint.X,
				Y:      e.Waypoint.Y,
				Time:   e.Time,
			})
		}
	case events.SensorEvent:
		if r, ok := sink.(coremetrics.SensorRecorder); ok {
			return r.RecordSensor(coremetrics.SensorRecord{Kind: e.Kind.String(), Bytes: e.Bytes, Time: e.Time})
		}
	case events.StatsEvent:
		if r, ok := sink.(coremetrics.TransmitStatsRecorder); ok {
			return r.RecordTransmitStats(coremetrics.TransmitStats{
				CommandsSent: e.CommandsSent,
				SendFailures: e.SendFailures,
				Time:         e.Time,
			})
		}
	}
	return nil
}
