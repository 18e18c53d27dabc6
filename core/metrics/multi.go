package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCommand forwards the record to all sinks.
func (m *MultiSink) RecordCommand(rec CommandRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCommand(rec))
	}
	return errors.Join(errs...)
}

// RecordPlanner forwards to sinks implementing PlannerRecorder.
func (m *MultiSink) RecordPlanner(rec PlannerRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(PlannerRecorder); ok {
			errs = append(errs, r.RecordPlanner(rec))
		}
	}
	return errors.Join(errs...)
}

// RecordSensor forwards to sinks implementing SensorRecorder.
func (m *MultiSink) RecordSensor(rec SensorRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SensorRecorder); ok {
			errs = append(errs, r.RecordSensor(rec))
		}
	}
	return errors.Join(errs...)
}

// RecordTransmitStats forwards to sinks implementing TransmitStatsRecorder.
func (m *MultiSink) RecordTransmitStats(st TransmitStats) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(TransmitStatsRecorder); ok {
			errs = append(errs, r.RecordTransmitStats(st))
		}
	}
	return errors.Join(errs...)
}
