// Package status serves a JSON snapshot of the running pipeline.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/simbridge/core/model"
	"github.com/kilianp07/simbridge/core/planner"
	"github.com/kilianp07/simbridge/infra/listener"
	"github.com/kilianp07/simbridge/infra/mqtt"
	"github.com/kilianp07/simbridge/infra/transmit"
)

// Path is the route the handler is mounted on.
const Path = "/api/status"

// Snapshot is the document returned by GET /api/status.
type Snapshot struct {
	RunID       string                `json:"run_id"`
	StartedAt   time.Time             `json:"started_at"`
	Phase       string                `json:"phase"`
	Planner     planner.State         `json:"planner"`
	Transmitter transmit.Stats        `json:"transmitter"`
	Datagram    listener.Stats        `json:"datagram"`
	Stream      listener.Stats        `json:"stream"`
	// Samples counts the handoff writes per sensor kind.
	Samples     map[string]uint64     `json:"samples"`
	MQTT        *mqtt.Stats           `json:"mqtt,omitempty"`
	LastCommand *model.ControlCommand `json:"last_command,omitempty"`
}

// Source produces snapshots. It must be safe to call from HTTP goroutines.
type Source interface {
	Snapshot() Snapshot
}

// NewStatusHandler returns an HTTP handler exposing src via GET.
func NewStatusHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := src.Snapshot()
		if snap.Phase == "" {
			snap.Phase = snap.Planner.Phase.String()
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
