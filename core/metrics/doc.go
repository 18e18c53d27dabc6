// Package metrics defines the observability records emitted by the
// pipeline and the sink interfaces that persist them. Concrete sinks live
// in infra/metrics and register themselves with the factory at init.
package metrics
