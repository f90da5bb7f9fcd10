// Package control holds the process-wide lifecycle flags that gate the
// acquisition loop and keep at most one snapshot recording in flight.
package control

import "go.uber.org/atomic"

// State is shared by the producer, the recorder and the UI. The zero value
// is not running and not recording.
type State struct {
	running   atomic.Bool
	recording atomic.Bool
}

// New returns a State with both flags cleared.
func New() *State {
	return &State{}
}

// IsRunning reports whether the acquisition loop should keep going.
func (s *State) IsRunning() bool {
	return s.running.Load()
}

// SetRunning flips the acquisition lifecycle flag.
func (s *State) SetRunning(v bool) {
	s.running.Store(v)
}

// TryBeginRecording claims the recording guard. It returns false without
// side effects when a recording is already in flight.
func (s *State) TryBeginRecording() bool {
	return s.recording.CompareAndSwap(false, true)
}

// EndRecording releases the recording guard. Every path that won
// TryBeginRecording must call it exactly once.
func (s *State) EndRecording() {
	s.recording.Store(false)
}

// IsRecording reports whether a recording is in flight.
func (s *State) IsRecording() bool {
	return s.recording.Load()
}
