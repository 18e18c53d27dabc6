// Package journal persists one record per control command so a run can be
// inspected or exported after the fact.
//
// Three stores are available: a plain JSONL file, a size-rotated JSONL file
// and a SQLite database. All of them implement Store.
package journal

import (
	"context"
	"time"

	"github.com/kilianp07/simbridge/core/events"
)

// Record captures one command and whether it reached the simulator.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	SimTime   float64   `json:"sim_time"`
	Steer     float64   `json:"steer"`
	Throttle  float64   `json:"throttle"`
	Brake     float64   `json:"brake"`
	Sent      bool      `json:"sent"`
	LatencyMS float64   `json:"latency_ms"`
}

// FromEvent converts a bus event into a record.
func FromEvent(runID string, ev events.CommandEvent) Record {
	return Record{
		Timestamp: ev.Time.UTC(),
		RunID:     runID,
		SimTime:   ev.Command.Timestamp,
		Steer:     ev.Command.Steer,
		Throttle:  ev.Command.Throttle,
		Brake:     ev.Command.Brake,
		Sent:      ev.Sent,
		LatencyMS: float64(ev.Latency) / float64(time.Millisecond),
	}
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start      time.Time
	End        time.Time
	RunID      string
	FailedOnly bool
}

// Match reports whether r passes every filter of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.FailedOnly && r.Sent {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
