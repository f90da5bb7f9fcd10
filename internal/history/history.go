// Package history provides the fixed-capacity sliding window of recent CO2
// readings shared by the acquisition loop, the live display and the
// snapshot recorder.
package history

import (
	"math"
	"sync"

	"github.com/luki/co2monitor/internal/sensor"
)

// DefaultCapacity is the number of readings kept for the live chart.
const DefaultCapacity = 150

// Window is a ring buffer of readings. The oldest reading is evicted once the
// window is full. It is safe for concurrent use.
type Window struct {
	mu     sync.RWMutex
	points []sensor.Reading
	head   int // index of the oldest reading
	size   int
}

// Stats summarises the readings currently held by the window.
type Stats struct {
	Count int
	Min   int
	Peak  int
	Avg   float64
}

// NewWindow creates a window with the given capacity. A non-positive
// capacity falls back to DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{points: make([]sensor.Reading, capacity)}
}

// Push appends a reading, evicting the oldest one when the window is full.
func (w *Window) Push(r sensor.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	capacity := len(w.points)
	if w.size < capacity {
		w.points[(w.head+w.size)%capacity] = r
		w.size++
		return
	}
	w.points[w.head] = r
	w.head = (w.head + 1) % capacity
}

// Snapshot returns an independent copy of the window, oldest first.
func (w *Window) Snapshot() []sensor.Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]sensor.Reading, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.points[(w.head+i)%len(w.points)]
	}
	return out
}

// Latest returns the most recently pushed reading, or false if empty.
func (w *Window) Latest() (sensor.Reading, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.size == 0 {
		return sensor.Reading{}, false
	}
	return w.points[(w.head+w.size-1)%len(w.points)], true
}

// Len returns the number of readings currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return len(w.points)
}

// Stats returns min/peak/avg over the current contents.
func (w *Window) Stats() Stats {
	return Summarize(w.Snapshot())
}

// Summarize computes min/peak/avg over a snapshot.
func Summarize(rs []sensor.Reading) Stats {
	if len(rs) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(rs), Min: math.MaxInt, Peak: math.MinInt}
	sum := 0
	for _, r := range rs {
		if r.PPM < s.Min {
			s.Min = r.PPM
		}
		if r.PPM > s.Peak {
			s.Peak = r.PPM
		}
		sum += r.PPM
	}
	s.Avg = float64(sum) / float64(len(rs))
	return s
}

// Values returns the PPM values of a snapshot in order.
func Values(rs []sensor.Reading) []int {
	vals := make([]int, len(rs))
	for i, r := range rs {
		vals[i] = r.PPM
	}
	return vals
}

// LastN returns at most the last n readings of a snapshot.
func LastN(rs []sensor.Reading, n int) []sensor.Reading {
	if n <= 0 || len(rs) == 0 {
		return nil
	}
	start := len(rs) - n
	if start < 0 {
		start = 0
	}
	return rs[start:]
}
