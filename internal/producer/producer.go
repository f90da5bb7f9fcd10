// Package producer runs the acquisition loop: it pulls lines from the device
// link, parses them into readings and pushes them into the sliding window.
package producer

import (
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"

	"github.com/luki/co2monitor/internal/control"
	"github.com/luki/co2monitor/internal/device"
	"github.com/luki/co2monitor/internal/logger"
	"github.com/luki/co2monitor/internal/sensor"
)

// DefaultIdleWait is how long the loop backs off when no data is available.
const DefaultIdleWait = 10 * time.Millisecond

// LineReader yields one text line per call. *device.Link implements it.
type LineReader interface {
	ReadLine() (string, error)
}

// Sink receives accepted readings. *history.Window implements it.
type Sink interface {
	Push(r sensor.Reading)
}

// Counters is a point-in-time copy of the loop's statistics.
type Counters struct {
	Lines      int64 // lines read from the link
	Accepted   int64 // lines parsed and pushed
	Rejected   int64 // lines that failed to parse
	ReadErrors int64 // transport errors
}

// Option customises a Producer.
type Option func(*Producer)

// WithIdleWait sets the back-off used when no line is available.
func WithIdleWait(d time.Duration) Option {
	return func(p *Producer) {
		if d > 0 {
			p.idleWait = d
		}
	}
}

// WithLogger sets the logger used for per-line diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(p *Producer) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the time source used to stamp readings.
func WithClock(now func() time.Time) Option {
	return func(p *Producer) { p.now = now }
}

// Producer is the single writer of the sliding window.
type Producer struct {
	link     LineReader
	sink     Sink
	state    *control.State
	idleWait time.Duration
	log      *logger.Logger
	now      func() time.Time

	lines      atomic.Int64
	accepted   atomic.Int64
	rejected   atomic.Int64
	readErrors atomic.Int64
}

// New wires a producer to its link, window and shared control state.
func New(link LineReader, sink Sink, state *control.State, opts ...Option) *Producer {
	p := &Producer{
		link:     link,
		sink:     sink,
		state:    state,
		idleWait: DefaultIdleWait,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run loops until the running flag is cleared or ctx is done. Read and parse
// failures never end the loop.
func (p *Producer) Run(ctx context.Context) {
	p.log.Debugw("producer started", "idle_wait", p.idleWait)
	defer p.log.Debugw("producer stopped", "lines", p.lines.Load(), "accepted", p.accepted.Load())

	for p.state.IsRunning() && ctx.Err() == nil {
		line, err := p.link.ReadLine()
		if err != nil {
			p.readFailed(err)
			if !p.idle(ctx) {
				return
			}
			continue
		}
		p.lines.Inc()

		ppm, err := sensor.ParseLine(line)
		if err != nil {
			p.rejected.Inc()
			var pe *sensor.ParseError
			if errors.As(err, &pe) {
				p.log.Debugw("discarding line", "line", pe.Line, "error", pe.Err)
			} else {
				p.log.Warnw("unexpected parse failure", "error", err)
			}
			continue
		}

		p.sink.Push(sensor.Reading{PPM: ppm, At: p.now()})
		p.accepted.Inc()
	}
}

func (p *Producer) readFailed(err error) {
	var re *device.ReadError
	switch {
	case errors.Is(err, device.ErrNoData), errors.Is(err, device.ErrNotConnected):
		// nothing to read yet
	case errors.As(err, &re):
		p.readErrors.Inc()
		p.log.Debugw("read failed", "device", re.Device, "error", re.Err)
	default:
		p.readErrors.Inc()
		p.log.Warnw("unexpected read failure", "error", err)
	}
}

// idle waits for the back-off period. It returns false if ctx ended first.
func (p *Producer) idle(ctx context.Context) bool {
	t := time.NewTimer(p.idleWait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Stats returns the current counters.
func (p *Producer) Stats() Counters {
	return Counters{
		Lines:      p.lines.Load(),
		Accepted:   p.accepted.Load(),
		Rejected:   p.rejected.Load(),
		ReadErrors: p.readErrors.Load(),
	}
}
