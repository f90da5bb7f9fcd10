package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luki/co2monitor/internal/control"
	"github.com/luki/co2monitor/internal/history"
	"github.com/luki/co2monitor/internal/journal"
	"github.com/luki/co2monitor/internal/sensor"
	"github.com/luki/co2monitor/internal/store"
)

type fakeWriter struct {
	mu    sync.Mutex
	paths []string
	rows  []store.Row
	err   error
}

func (w *fakeWriter) Write(path string, row store.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = append(w.paths, path)
	w.rows = append(w.rows, row)
	return w.err
}

func (w *fakeWriter) calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (j *fakeJournal) Append(_ context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return j.err
}

func windowWith(values ...int) *history.Window {
	w := history.NewWindow(history.DefaultCapacity)
	for _, v := range values {
		w.Push(sensor.Reading{PPM: v, At: time.Now()})
	}
	return w
}

func fast() Option { return WithDelayUnit(time.Millisecond) }

func TestRecordEndToEnd(t *testing.T) {
	state := control.New()
	path := filepath.Join(t.TempDir(), "snap.csv")
	rec := New(windowWith(10, 12, 15), state, store.CSVWriter{})

	res := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: path})
	written := time.Now()

	require.Equal(t, Recorded, res.Outcome, "err: %v", res.Err)
	require.False(t, state.IsRecording())
	require.Equal(t, path, res.Path)
	require.Equal(t, "Data saved: "+path, res.String())
	require.GreaterOrEqual(t, res.CompletedAt.Sub(res.RequestedAt), time.Second)

	rows, err := store.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 15, rows[0].PPM)

	ts, err := rows[0].Time()
	require.NoError(t, err)
	require.WithinDuration(t, written, ts, time.Second+time.Millisecond)
}

func TestTriggerRejectsWhileInFlight(t *testing.T) {
	state := control.New()
	w := &fakeWriter{}
	rec := New(windowWith(500), state, w, fast())

	release := make(chan struct{})
	first := rec.Trigger(context.Background(), Request{
		DelaySeconds: 1,
		Choose: func(ctx context.Context, suggested string) (string, error) {
			<-release
			return "first.csv", nil
		},
	})
	require.True(t, state.IsRecording())
	require.True(t, rec.Busy())

	second := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "second.csv"})
	require.Equal(t, Rejected, second.Outcome)
	require.ErrorIs(t, second.Err, ErrBusy)
	require.True(t, state.IsRecording(), "rejection must not release the running recording's guard")

	close(release)
	res := <-first
	require.Equal(t, Recorded, res.Outcome)
	require.Equal(t, []string{"first.csv"}, w.paths)
	require.False(t, state.IsRecording())
}

func TestNoDataReleasesGuard(t *testing.T) {
	state := control.New()
	w := &fakeWriter{}
	rec := New(windowWith(), state, w, fast())

	res := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "x.csv"})
	require.Equal(t, NoData, res.Outcome)
	require.ErrorIs(t, res.Err, ErrNoData)
	require.Zero(t, w.calls())
	require.False(t, state.IsRecording())

	again := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "x.csv"})
	require.Equal(t, NoData, again.Outcome, "guard must be claimable again")
}

func TestWriterFailure(t *testing.T) {
	state := control.New()
	boom := errors.New("disk full")
	rec := New(windowWith(700), state, &fakeWriter{err: boom}, fast())

	res := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "x.csv"})
	require.Equal(t, WriterFailed, res.Outcome)
	require.ErrorIs(t, res.Err, boom)
	require.True(t, res.Captured)
	require.Equal(t, 700, res.Row.PPM)
	require.Contains(t, res.String(), "disk full")
	require.False(t, state.IsRecording())
}

func TestChooseCancelled(t *testing.T) {
	tests := []struct {
		name   string
		choose DestinationFunc
	}{
		{"empty path", func(context.Context, string) (string, error) { return "", nil }},
		{"cancel error", func(context.Context, string) (string, error) { return "", ErrCancelled }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := control.New()
			w := &fakeWriter{}
			rec := New(windowWith(420), state, w, fast())

			res := rec.Record(context.Background(), Request{DelaySeconds: 1, Choose: tt.choose})
			require.Equal(t, Cancelled, res.Outcome)
			require.ErrorIs(t, res.Err, ErrCancelled)
			require.Zero(t, w.calls())
			require.False(t, state.IsRecording())
		})
	}
}

func TestChooseGetsSuggestedPath(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 3, 0, time.Local)
	w := &fakeWriter{}
	rec := New(windowWith(600), control.New(), w, fast(),
		WithDir("/data"), WithClock(func() time.Time { return at }))

	var got string
	res := rec.Record(context.Background(), Request{
		DelaySeconds: 2,
		Choose: func(_ context.Context, suggested string) (string, error) {
			got = suggested
			return suggested, nil
		},
	})
	require.Equal(t, Recorded, res.Outcome)
	require.Equal(t, filepath.Join("/data", "co2_20240501_120003.csv"), got)
	require.Equal(t, store.Row{Timestamp: "2024-05-01 12:00:03", PPM: 600}, w.rows[0])
}

func TestContextCancelDuringDelay(t *testing.T) {
	state := control.New()
	w := &fakeWriter{}
	rec := New(windowWith(500), state, w)

	ctx, cancel := context.WithCancel(context.Background())
	ch := rec.Trigger(ctx, Request{DelaySeconds: 60, Destination: "x.csv"})
	cancel()

	select {
	case res := <-ch:
		require.Equal(t, Cancelled, res.Outcome)
		require.ErrorIs(t, res.Err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancellation did not interrupt the delay")
	}
	require.Zero(t, w.calls())
	require.False(t, state.IsRecording())
}

func TestInvalidDelay(t *testing.T) {
	state := control.New()
	j := &fakeJournal{}
	rec := New(windowWith(500), state, &fakeWriter{}, WithJournal(j))

	for _, d := range []int{0, -1} {
		res := rec.Record(context.Background(), Request{DelaySeconds: d, Destination: "x.csv"})
		require.Equal(t, Invalid, res.Outcome)
		require.ErrorIs(t, res.Err, ErrInvalidDelay)
		require.False(t, state.IsRecording())
	}
	require.Empty(t, j.entries)
}

func TestTriggerDoesNotBlock(t *testing.T) {
	rec := New(windowWith(500), control.New(), &fakeWriter{})

	start := time.Now()
	ch := rec.Trigger(context.Background(), Request{DelaySeconds: 3, Destination: "x.csv"})
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.NotNil(t, ch)
}

func TestJournalEntries(t *testing.T) {
	j := &fakeJournal{}
	rec := New(windowWith(555), control.New(), &fakeWriter{}, fast(),
		WithJournal(j), WithDevice(func() string { return "/dev/ttyUSB0" }))

	res := rec.Record(context.Background(), Request{ID: "req-1", DelaySeconds: 2, Destination: "x.csv"})
	require.Equal(t, Recorded, res.Outcome)

	require.Len(t, j.entries, 1)
	e := j.entries[0]
	require.Equal(t, "req-1", e.ID)
	require.Equal(t, "/dev/ttyUSB0", e.Device)
	require.Equal(t, 2, e.DelaySeconds)
	require.Equal(t, "recorded", e.Outcome)
	require.True(t, e.Captured)
	require.Equal(t, 555, e.PPM)
	require.Equal(t, "x.csv", e.Path)
	require.Empty(t, e.Error)
}

func TestJournalFailureKeepsOutcome(t *testing.T) {
	j := &fakeJournal{err: errors.New("database is locked")}
	rec := New(windowWith(), control.New(), &fakeWriter{}, fast(), WithJournal(j))

	res := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "x.csv"})
	require.Equal(t, NoData, res.Outcome)
	require.Len(t, j.entries, 1)
	require.Equal(t, "no data", j.entries[0].Outcome)
	require.False(t, j.entries[0].Captured)
}

func TestGeneratedIDs(t *testing.T) {
	rec := New(windowWith(1), control.New(), &fakeWriter{}, fast())
	a := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "a.csv"})
	b := rec.Record(context.Background(), Request{DelaySeconds: 1, Destination: "b.csv"})
	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "recorded", Recorded.String())
	require.Equal(t, "writer failed", WriterFailed.String())
	require.Equal(t, "unknown", Outcome(99).String())
}
