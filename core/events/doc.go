// Package events defines the pipeline events emitted on the event bus.
//
// Available event types:
//   - CommandEvent: a control command left the control loop
//   - PlannerEvent: waypoint reached or route completed
//   - SensorEvent: a sample was consumed from the handoff buffer
//   - StatsEvent: periodic transmitter counters
package events
