package events

import (
	"time"

	"github.com/kilianp07/simbridge/core/model"
)

// Event is implemented by everything published on the pipeline bus.
type Event interface {
	Topic() string
}

// CommandEvent is published for every command handed to the transmitter.
type CommandEvent struct {
	Command model.ControlCommand
	Sent    bool
	Latency time.Duration
	Time    time.Time
}

func (CommandEvent) Topic() string { return "command" }

// PlannerAction names a planner transition.
type PlannerAction string

const (
	WaypointReached PlannerAction = "waypoint_reached"
	RouteCompleted  PlannerAction = "route_completed"
)

// PlannerEvent is published when the planner advances.
type PlannerEvent struct {
	Action   PlannerAction
	Index    int
	Waypoint model.Waypoint
	Time     time.Time
}

func (PlannerEvent) Topic() string { return "planner" }

// SensorEvent is published when the control loop consumes a sample.
type SensorEvent struct {
	Kind  model.SensorKind
	Bytes int
	Time  time.Time
}

func (SensorEvent) Topic() string { return "sensor" }

// StatsEvent carries the transmitter counters at a point in time.
type StatsEvent struct {
	CommandsSent uint64
	SendFailures uint64
	Time         time.Time
}

func (StatsEvent) Topic() string { return "stats" }
