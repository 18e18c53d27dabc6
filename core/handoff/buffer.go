// Package handoff passes the latest sensor reading of each kind from the
// ingress goroutines to the control loop.
//
// Each kind has a single slot holding the most recent sample and a dirty
// flag. Set overwrites the slot and raises the flag; Take returns the
// sample and clears the flag in the same critical section, so a sample is
// delivered at most once and intermediate samples are dropped.
package handoff

import (
	"sync"

	"github.com/kilianp07/simbridge/core/model"
)

type slot struct {
	sample model.SensorSample
	dirty  bool
}

// Buffer is a last-write-wins mailbox keyed by sensor kind. The zero value
// is ready to use.
type Buffer struct {
	mu    sync.Mutex
	slots [model.NumSensorKinds]slot
	sets  [model.NumSensorKinds]uint64
}

// New returns an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Set stores s as the latest sample of its kind. Nil samples and unknown
// kinds are ignored.
func (b *Buffer) Set(s model.SensorSample) {
	if s == nil {
		return
	}
	k := s.Kind()
	if k < 0 || k >= model.NumSensorKinds {
		return
	}
	b.mu.Lock()
	b.slots[k] = slot{sample: s, dirty: true}
	b.sets[k]++
	b.mu.Unlock()
}

// Take returns the latest sample of kind k if one arrived since the
// previous Take, clearing the dirty flag.
func (b *Buffer) Take(k model.SensorKind) (model.SensorSample, bool) {
	if k < 0 || k >= model.NumSensorKinds {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &b.slots[k]
	if !s.dirty {
		return nil, false
	}
	s.dirty = false
	return s.sample, true
}

// Pending reports whether an unconsumed sample of kind k is waiting.
func (b *Buffer) Pending(k model.SensorKind) bool {
	if k < 0 || k >= model.NumSensorKinds {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.slots[k].dirty
}

// Writes returns how many samples of kind k have been stored so far.
func (b *Buffer) Writes(k model.SensorKind) uint64 {
	if k < 0 || k >= model.NumSensorKinds {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets[k]
}
