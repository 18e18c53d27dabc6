package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/simbridge/core/metrics"
)

const namespace = "simbridge"

// PromSink exposes pipeline records as Prometheus metrics.
type PromSink struct {
	commands      *prometheus.CounterVec
	latency       prometheus.Histogram
	actuation     *prometheus.GaugeVec
	plannerEvents *prometheus.CounterVec
	waypoint      prometheus.Gauge
	samples       *prometheus.CounterVec
	sampleBytes   *prometheus.CounterVec
	sent          prometheus.Gauge
	failures      prometheus.Gauge
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.commands, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Control commands handed to the transmitter",
	}, []string{"sent"})); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "command_send_seconds",
		Help:      "Time spent sending a command including retries",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .25, .5, 1},
	})); err != nil {
		return nil, err
	}
	if s.actuation, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "command_value",
		Help:      "Last commanded actuation per axis",
	}, []string{"axis"})); err != nil {
		return nil, err
	}
	if s.plannerEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planner_events_total",
		Help:      "Planner transitions",
	}, []string{"action"})); err != nil {
		return nil, err
	}
	if s.waypoint, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "planner_waypoint_index",
		Help:      "Index of the last reached waypoint",
	})); err != nil {
		return nil, err
	}
	if s.samples, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sensor_samples_total",
		Help:      "Sensor samples consumed by the control loop",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.sampleBytes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sensor_bytes_total",
		Help:      "Payload bytes of consumed sensor samples",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.sent, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transmit_commands_sent",
		Help:      "Commands sent successfully since start",
	})); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transmit_send_failures",
		Help:      "Commands dropped after exhausting retries since start",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCommand counts the command and tracks the actuation gauges.
func (s *PromSink) RecordCommand(rec coremetrics.CommandRecord) error {
	s.commands.WithLabelValues(strconv.FormatBool(rec.Sent)).Inc()
	s.latency.Observe(rec.Latency.Seconds())
	s.actuation.WithLabelValues("steer").Set(rec.Steer)
	s.actuation.WithLabelValues("throttle").Set(rec.Throttle)
	s.actuation.WithLabelValues("brake").Set(rec.Brake)
	return nil
}

// RecordPlanner counts planner transitions.
func (s *PromSink) RecordPlanner(rec coremetrics.PlannerRecord) error {
	s.plannerEvents.WithLabelValues(rec.Action).Inc()
	s.waypoint.Set(float64(rec.Index))
	return nil
}

// RecordSensor counts consumed samples.
func (s *PromSink) RecordSensor(rec coremetrics.SensorRecord) error {
	s.samples.WithLabelValues(rec.Kind).Inc()
	s.sampleBytes.WithLabelValues(rec.Kind).Add(float64(rec.Bytes))
	return nil
}

// RecordTransmitStats mirrors the transmitter counters.
func (s *PromSink) RecordTransmitStats(st coremetrics.TransmitStats) error {
	s.sent.Set(float64(st.CommandsSent))
	s.failures.Set(float64(st.SendFailures))
	return nil
}
