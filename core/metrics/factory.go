package metrics

import "github.com/kilianp07/simbridge/core/factory"

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// runTagged lists the sink types that accept a run_id setting.
var runTagged = map[string]bool{"influx": true}

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkOption adjusts a copy of each sink config before it is built.
type SinkOption func(*factory.ModuleConfig)

// WithRunID sets run_id on sinks that tag points with it, unless the
// config already names one.
func WithRunID(runID string) SinkOption {
	return func(c *factory.ModuleConfig) {
		if runID == "" || !runTagged[c.Type] {
			return
		}
		if c.Conf == nil {
			c.Conf = map[string]any{}
		}
		if _, ok := c.Conf["run_id"]; !ok {
			c.Conf["run_id"] = runID
		}
	}
}

// NewMetricsSink creates a MetricsSink from the provided configuration.
// cfgs is never modified.
func NewMetricsSink(cfgs []factory.ModuleConfig, opts ...SinkOption) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinkRegistry.Create(prepare(cfgs[0], opts))
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(prepare(c, opts))
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}

func prepare(c factory.ModuleConfig, opts []SinkOption) factory.ModuleConfig {
	if len(opts) == 0 {
		return c
	}
	conf := make(map[string]any, len(c.Conf)+1)
	for k, v := range c.Conf {
		conf[k] = v
	}
	out := factory.ModuleConfig{Type: c.Type, Conf: conf}
	for _, o := range opts {
		o(&out)
	}
	return out
}
