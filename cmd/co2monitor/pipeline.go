package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/luki/co2monitor/internal/config"
	"github.com/luki/co2monitor/internal/control"
	"github.com/luki/co2monitor/internal/device"
	"github.com/luki/co2monitor/internal/history"
	"github.com/luki/co2monitor/internal/journal"
	"github.com/luki/co2monitor/internal/logger"
	"github.com/luki/co2monitor/internal/producer"
	"github.com/luki/co2monitor/internal/recorder"
	"github.com/luki/co2monitor/internal/store"
)

// pipeline owns every long-lived component of a session.
type pipeline struct {
	log      *logger.Logger
	state    *control.State
	window   *history.Window
	link     *device.Link
	producer *producer.Producer
	recorder *recorder.Recorder
	journal  *journal.SQLite // nil when disabled

	wg sync.WaitGroup
}

func buildPipeline(cfg *config.Config, log *logger.Logger) (*pipeline, error) {
	p := &pipeline{
		log:    log,
		state:  control.New(),
		window: history.NewWindow(cfg.Buffer.Capacity),
		link: device.NewLink(device.Config{
			BaudRate:    cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
		}),
	}

	p.producer = producer.New(p.link, p.window, p.state,
		producer.WithIdleWait(cfg.Producer.IdleWait),
		producer.WithLogger(log.With("component", "producer")),
	)

	opts := []recorder.Option{
		recorder.WithDir(cfg.Record.Dir),
		recorder.WithDevice(p.link.Device),
		recorder.WithLogger(log.With("component", "recorder")),
	}
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		p.journal = j
		opts = append(opts, recorder.WithJournal(j))
	}
	p.recorder = recorder.New(p.window, p.state, store.CSVWriter{MkdirAll: true}, opts...)

	return p, nil
}

// start raises the running flag and launches the producer.
func (p *pipeline) start(ctx context.Context) {
	p.state.SetRunning(true)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.producer.Run(ctx)
	}()
}

// shutdown stops the producer and releases the device and the journal.
func (p *pipeline) shutdown() {
	p.state.SetRunning(false)
	if err := p.link.Close(); err != nil {
		p.log.Warnw("close device", "error", err)
	}
	p.wg.Wait()

	if p.journal != nil {
		if err := p.journal.Close(); err != nil {
			p.log.Warnw("close journal", "error", err)
		}
	}
	st := p.producer.Stats()
	p.log.Infow("shutdown complete", "lines", st.Lines, "accepted", st.Accepted, "rejected", st.Rejected)
}
