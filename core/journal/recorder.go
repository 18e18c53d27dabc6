package journal

import (
	"context"

	"github.com/kilianp07/simbridge/core/events"
	"github.com/kilianp07/simbridge/core/logger"
	"github.com/kilianp07/simbridge/core/monitoring"
	"github.com/kilianp07/simbridge/internal/eventbus"
)

// StartRecorder appends every CommandEvent seen on bus to store until ctx
// is done or the bus closes. The returned channel is closed on exit.
func StartRecorder(ctx context.Context, bus eventbus.EventBus[events.Event], store Store, runID string, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || store == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		failing := false
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				ce, isCmd := ev.(events.CommandEvent)
				if !isCmd {
					continue
				}
				err := store.Append(ctx, FromEvent(runID, ce))
				switch {
				case err != nil && !failing:
					// report the first failure of a streak only
					failing = true
					log.Errorf("journal append: %v", err)
					monitoring.CaptureException(err, map[string]string{"module": "journal"})
				case err == nil && failing:
					failing = false
					log.Infof("journal append recovered")
				}
			}
		}
	}()
	return done
}
