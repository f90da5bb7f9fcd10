// Package recorder takes delayed single-value snapshots of the sliding window
// and hands them to the CSV writer. At most one recording is in flight; the
// shared control.State guard enforces it.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/luki/co2monitor/internal/control"
	"github.com/luki/co2monitor/internal/journal"
	"github.com/luki/co2monitor/internal/logger"
	"github.com/luki/co2monitor/internal/sensor"
	"github.com/luki/co2monitor/internal/store"
)

var (
	// ErrBusy is carried by Rejected results.
	ErrBusy = errors.New("recorder: a recording is already in progress")
	// ErrNoData is carried by NoData results.
	ErrNoData = errors.New("recorder: no reading available")
	// ErrInvalidDelay is carried by Invalid results.
	ErrInvalidDelay = errors.New("recorder: delay must be a positive number of seconds")
	// ErrCancelled is returned by a DestinationFunc when the operator backs out.
	ErrCancelled = errors.New("recorder: destination selection cancelled")
)

const journalTimeout = 5 * time.Second

// Latest yields the most recent reading. *history.Window implements it.
type Latest interface {
	Latest() (sensor.Reading, bool)
}

// RowWriter persists one snapshot row. store.CSVWriter implements it.
type RowWriter interface {
	Write(path string, row store.Row) error
}

// Journal keeps a log of finished recordings. *journal.SQLite implements it.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) error
}

// DestinationFunc picks the output file after the value was captured. It gets
// a suggested path and returns the chosen one, "" or ErrCancelled to abort.
type DestinationFunc func(ctx context.Context, suggested string) (string, error)

// Request describes one recording.
type Request struct {
	ID           string // generated when empty
	DelaySeconds int
	Destination  string          // used as is when set
	Choose       DestinationFunc // consulted when Destination is empty
}

// Result is the single message produced for every request.
type Result struct {
	ID          string
	Outcome     Outcome
	Path        string
	Row         store.Row
	Captured    bool // Row.PPM holds the captured value
	Err         error
	RequestedAt time.Time
	CompletedAt time.Time
}

// String renders the result as an operator notice.
func (r Result) String() string {
	switch r.Outcome {
	case Recorded:
		return "Data saved: " + r.Path
	case Rejected:
		return "Recording already in progress"
	case NoData:
		return "No data to save"
	case WriterFailed:
		return fmt.Sprintf("Failed to save data: %v", r.Err)
	case Cancelled:
		return "Recording cancelled"
	case Invalid:
		return "Invalid recording delay"
	default:
		return r.Outcome.String()
	}
}

// Option customises a Recorder.
type Option func(*Recorder)

// WithJournal records every finished request in j.
func WithJournal(j Journal) Option {
	return func(r *Recorder) { r.journal = j }
}

// WithLogger sets the logger. A nil logger keeps the default no-op one.
func WithLogger(l *logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.log = l
		}
	}
}

// WithDir sets the directory used for suggested destinations.
func WithDir(dir string) Option {
	return func(r *Recorder) { r.dir = dir }
}

// WithDevice reports the device name stored in the journal.
func WithDevice(device func() string) Option {
	return func(r *Recorder) { r.device = device }
}

// WithClock overrides the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithDelayUnit changes the length of one delay "second".
func WithDelayUnit(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.unit = d
		}
	}
}

// Recorder runs snapshot requests against a window.
type Recorder struct {
	window  Latest
	state   *control.State
	writer  RowWriter
	journal Journal
	log     *logger.Logger
	dir     string
	device  func() string
	now     func() time.Time
	unit    time.Duration
}

// New creates a recorder reading from window and writing through writer.
func New(window Latest, state *control.State, writer RowWriter, opts ...Option) *Recorder {
	r := &Recorder{
		window: window,
		state:  state,
		writer: writer,
		log:    logger.Nop(),
		dir:    ".",
		device: func() string { return "" },
		now:    time.Now,
		unit:   time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether a recording is in flight.
func (r *Recorder) Busy() bool {
	return r.state.IsRecording()
}

// Trigger validates req and claims the guard synchronously. The returned
// channel receives exactly one Result. Invalid and Rejected results are
// delivered immediately without side effects; otherwise the delay runs in a
// new goroutine and never blocks the caller.
func (r *Recorder) Trigger(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)
	requestedAt := r.now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if req.DelaySeconds <= 0 {
		out <- Result{ID: req.ID, Outcome: Invalid, Err: ErrInvalidDelay, RequestedAt: requestedAt, CompletedAt: requestedAt}
		return out
	}
	if !r.state.TryBeginRecording() {
		r.log.Infow("recording rejected", "id", req.ID)
		out <- Result{ID: req.ID, Outcome: Rejected, Err: ErrBusy, RequestedAt: requestedAt, CompletedAt: requestedAt}
		return out
	}

	go func() {
		res := r.process(ctx, req, requestedAt)
		r.appendJournal(ctx, req, res)
		out <- res
	}()
	return out
}

// Record is Trigger followed by waiting for the result.
func (r *Recorder) Record(ctx context.Context, req Request) Result {
	return <-r.Trigger(ctx, req)
}

// process runs Delaying, Capturing and Writing. The guard is released before
// it returns, whatever the outcome.
func (r *Recorder) process(ctx context.Context, req Request, requestedAt time.Time) Result {
	defer r.state.EndRecording()

	res := Result{ID: req.ID, RequestedAt: requestedAt}
	finish := func(o Outcome, err error) Result {
		res.Outcome, res.Err, res.CompletedAt = o, err, r.now()
		r.log.Infow("recording finished", "id", res.ID, "outcome", o.String(), "path", res.Path, "error", err)
		return res
	}

	r.log.Infow("recording started", "id", req.ID, "delay_s", req.DelaySeconds)

	timer := time.NewTimer(time.Duration(req.DelaySeconds) * r.unit)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return finish(Cancelled, ctx.Err())
	case <-timer.C:
	}

	reading, ok := r.window.Latest()
	if !ok {
		return finish(NoData, ErrNoData)
	}
	res.Row.PPM, res.Captured = reading.PPM, true

	path, err := r.destination(ctx, req)
	if err != nil {
		return finish(Cancelled, err)
	}
	res.Path = path

	res.Row = store.NewRow(r.now(), reading.PPM)
	if err := r.writer.Write(path, res.Row); err != nil {
		return finish(WriterFailed, err)
	}
	return finish(Recorded, nil)
}

func (r *Recorder) destination(ctx context.Context, req Request) (string, error) {
	if req.Destination != "" {
		return req.Destination, nil
	}
	suggested := r.Suggest()
	if req.Choose == nil {
		return suggested, nil
	}

	path, err := req.Choose(ctx, suggested)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrCancelled
	}
	return path, nil
}

// Suggest returns the default destination for a snapshot taken now.
func (r *Recorder) Suggest() string {
	return filepath.Join(r.dir, store.SuggestName(r.now()))
}

func (r *Recorder) appendJournal(ctx context.Context, req Request, res Result) {
	if r.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	e := journal.Entry{
		ID:           res.ID,
		RequestedAt:  res.RequestedAt,
		CompletedAt:  res.CompletedAt,
		Device:       r.device(),
		DelaySeconds: req.DelaySeconds,
		Outcome:      res.Outcome.String(),
		PPM:          res.Row.PPM,
		Captured:     res.Captured,
		Path:         res.Path,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	if err := r.journal.Append(ctx, e); err != nil {
		r.log.Warnw("journal append failed", "id", res.ID, "error", err)
	}
}
