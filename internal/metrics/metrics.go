// Package metrics provides the Recorder interface for save/load telemetry and
// a noop implementation.
package metrics

import "time"

// Recorder is the interface for recording operational metrics.
type Recorder interface {
	// RecordSave is called after a save game is written to a slot.
	RecordSave(slot string)
	// RecordLoad is called after a slot lookup; found reports whether the
	// slot existed in any backend.
	RecordLoad(slot string, found bool)
	RecordLatency(op string, d time.Duration)
	RecordError(op string)
	// RecordLoadState is called each time a latent load enters a new state.
	RecordLoadState(state string)
}

// Noop is a Recorder that discards all data.
type Noop struct{}

func (Noop) RecordSave(slot string)                   {}
func (Noop) RecordLoad(slot string, found bool)       {}
func (Noop) RecordLatency(op string, d time.Duration) {}
func (Noop) RecordError(op string)                    {}
func (Noop) RecordLoadState(state string)             {}
