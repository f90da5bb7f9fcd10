package producer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luki/co2monitor/internal/control"
	"github.com/luki/co2monitor/internal/device"
	"github.com/luki/co2monitor/internal/history"
	"github.com/luki/co2monitor/internal/sensor"
)

type step struct {
	line string
	err  error
}

// scriptedReader replays steps and then reports ErrNoData forever.
type scriptedReader struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (r *scriptedReader) ReadLine() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.steps) == 0 {
		return "", device.ErrNoData
	}
	s := r.steps[0]
	r.steps = r.steps[1:]
	return s.line, s.err
}

func (r *scriptedReader) drained() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.steps) == 0
}

func runningState() *control.State {
	s := control.New()
	s.SetRunning(true)
	return s
}

func values(w *history.Window) []int {
	return history.Values(w.Snapshot())
}

func TestRunDiscardsInvalidLines(t *testing.T) {
	reader := &scriptedReader{steps: []step{{line: "42"}, {line: "oops"}, {line: "43"}}}
	w := history.NewWindow(history.DefaultCapacity)
	p := New(reader, w, runningState(), WithIdleWait(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return w.Len() == 2 }, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, []int{42, 43}, values(w))
	st := p.Stats()
	require.EqualValues(t, 3, st.Lines)
	require.EqualValues(t, 2, st.Accepted)
	require.EqualValues(t, 1, st.Rejected)
}

func TestRunSurvivesReadErrors(t *testing.T) {
	reader := &scriptedReader{steps: []step{
		{err: device.ErrNotConnected},
		{err: &device.ReadError{Device: "/dev/ttyUSB0", Err: errors.New("i/o error")}},
		{err: errors.New("something odd")},
		{line: " 415 "},
	}}
	w := history.NewWindow(10)
	p := New(reader, w, runningState(), WithIdleWait(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return w.Len() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []int{415}, values(w))
	require.EqualValues(t, 2, p.Stats().ReadErrors)
}

func TestRunStopsWhenNotRunning(t *testing.T) {
	reader := &scriptedReader{}
	state := runningState()
	p := New(reader, history.NewWindow(10), state, WithIdleWait(time.Millisecond))

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	state.SetRunning(false)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after running was cleared")
	}
}

func TestRunReturnsImmediatelyWhenNeverStarted(t *testing.T) {
	reader := &scriptedReader{steps: []step{{line: "1"}}}
	p := New(reader, history.NewWindow(10), control.New())

	p.Run(context.Background())
	require.False(t, reader.drained())
	require.Zero(t, reader.calls)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p := New(&scriptedReader{}, history.NewWindow(10), runningState(), WithIdleWait(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer ignored context cancellation during idle wait")
	}
}

func TestRunStampsReadings(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reader := &scriptedReader{steps: []step{{line: "800"}}}
	w := history.NewWindow(10)
	p := New(reader, w, runningState(), WithIdleWait(time.Millisecond), WithClock(func() time.Time { return at }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool { return w.Len() == 1 }, time.Second, time.Millisecond)
	r, ok := w.Latest()
	require.True(t, ok)
	require.Equal(t, sensor.Reading{PPM: 800, At: at}, r)
}
