package metrics

import "time"

// CommandRecord describes one command handed to the transmitter.
type CommandRecord struct {
	Steer    float64
	Throttle float64
	Brake    float64
	Sent     bool
	Latency  time.Duration
	Time     time.Time
}

// MetricsSink records commands. Optional recorder interfaces below are
// detected with type assertions.
type MetricsSink interface {
	RecordCommand(rec CommandRecord) error
}

// PlannerRecord describes a planner transition.
type PlannerRecord struct {
	Action string
	Index  int
	X      float64
	Y      float64
	Time   time.Time
}

// PlannerRecorder records planner transitions.
type PlannerRecorder interface {
	RecordPlanner(rec PlannerRecord) error
}

// SensorRecord describes a consumed sensor sample.
type SensorRecord struct {
	Kind  string
	Bytes int
	Time  time.Time
}

// SensorRecorder records consumed sensor samples.
type SensorRecorder interface {
	RecordSensor(rec SensorRecord) error
}

// TransmitStats is a snapshot of the transmitter counters.
type TransmitStats struct {
	CommandsSent uint64
	SendFailures uint64
	Time         time.Time
}

// TransmitStatsRecorder records transmitter counters.
type TransmitStatsRecorder interface {
	RecordTransmitStats(s TransmitStats) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCommand(CommandRecord) error       { return nil }
func (NopSink) RecordPlanner(PlannerRecord) error       { return nil }
func (NopSink) RecordSensor(SensorRecord) error         { return nil }
func (NopSink) RecordTransmitStats(TransmitStats) error { return nil }
