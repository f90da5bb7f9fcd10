// Command co2monitor reads a CO2 sensor over a serial port, charts the last
// readings live and records snapshots to CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/luki/co2monitor/internal/chart"
	"github.com/luki/co2monitor/internal/config"
	"github.com/luki/co2monitor/internal/journal"
	"github.com/luki/co2monitor/internal/logger"
	"github.com/luki/co2monitor/internal/monitor"
	"github.com/luki/co2monitor/internal/recorder"
	"github.com/luki/co2monitor/internal/sensor"
	"github.com/luki/co2monitor/internal/store"
	"github.com/luki/co2monitor/internal/viewer"
)

const usage = `usage: co2monitor [command] [flags]

commands:
  monitor   live chart with device picker and snapshot recording (default)
  ports     list serial devices
  record    take one snapshot: record --device D --delay N [--out FILE]
  show      print a snapshot file: show FILE
  journal   browse past recordings
`

func main() {
	cmd, args := "monitor", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "monitor":
		err = runMonitor(ctx, args)
	case "ports":
		err = runPorts()
	case "record":
		err = runRecord(ctx, args)
	case "show":
		err = runShow(args)
	case "journal":
		err = runJournal(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig parses flags for a subcommand and resolves the configuration.
func loadConfig(name string, args []string) (*config.Config, *pflag.FlagSet, error) {
	fs := config.Flags(name)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	v := config.New()
	if err := config.BindFlags(v, fs); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, fs, nil
}

// --------------------
// monitor
// --------------------

func runMonitor(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("monitor", args)
	if err != nil {
		return err
	}

	// the TUI owns the terminal, so logs go to a file
	log, closeLog, err := logger.NewFile(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.start(ctx)

	prompter := &monitor.Prompter{}
	model := monitor.New(ctx, monitor.Config{
		Window:      p.window,
		Link:        p.link,
		Recorder:    p.recorder,
		Producer:    p.producer,
		Prompter:    prompter,
		Devices:     sensor.Discover,
		Interval:    cfg.Display.Interval,
		YMax:        cfg.Display.YMax,
		Intervals:   cfg.Record.Intervals,
		Levels:      chart.DefaultLevels,
		Log:         log.With("component", "monitor"),
		AutoConnect: cfg.Serial.Device,
	})

	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	prompter.Attach(prog.Send)

	log.Infow("monitor started", "device", cfg.Serial.Device, "capacity", cfg.Buffer.Capacity)
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// --------------------
// ports
// --------------------

func runPorts() error {
	devs, err := sensor.Discover()
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Println("No serial devices found")
		return nil
	}
	for _, d := range devs {
		fmt.Println(d.Label())
	}
	return nil
}

// --------------------
// record
// --------------------

func runRecord(ctx context.Context, args []string) error {
	cfg, fs, err := loadConfig("record", args)
	if err != nil {
		return err
	}
	delay, _ := fs.GetInt("delay")
	out, _ := fs.GetString("out")

	if delay <= 0 {
		return fmt.Errorf("record: --delay %d: %w", delay, recorder.ErrInvalidDelay)
	}
	if cfg.Serial.Device == "" {
		return errors.New("record: --device is required (see `co2monitor ports`)")
	}

	log := logger.Get(cfg.Log.Level)
	defer log.Sync()

	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.shutdown()

	if err := p.link.Connect(cfg.Serial.Device); err != nil {
		return err
	}
	log.Infow("device connected", "device", cfg.Serial.Device)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.start(ctx)

	fmt.Fprintf(os.Stderr, "Recording... please wait %d seconds\n", delay)
	res := p.recorder.Record(ctx, recorder.Request{DelaySeconds: delay, Destination: out})
	fmt.Println(res.String())
	if res.Outcome != recorder.Recorded {
		return fmt.Errorf("recording %s", res.Outcome)
	}
	return nil
}

// --------------------
// show
// --------------------

func runShow(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: co2monitor show FILE")
	}
	rows, err := store.LoadFile(args[0])
	if err != nil {
		return err
	}
	fmt.Println("Timestamp            PPM")
	for _, r := range rows {
		fmt.Printf("%-20s %d\n", r.Timestamp, r.PPM)
	}
	return nil
}

// --------------------
// journal
// --------------------

func runJournal(ctx context.Context, args []string) error {
	cfg, _, err := loadConfig("journal", args)
	if err != nil {
		return err
	}
	if cfg.Journal.Path == "" {
		return errors.New("journal is disabled (journal.path is empty)")
	}
	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		return fmt.Errorf("no journal at %s: %w", cfg.Journal.Path, err)
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer j.Close()

	err = viewer.Run(ctx, j, journal.DefaultLimit)
	if errors.Is(err, viewer.ErrEmpty) {
		fmt.Fprintf(os.Stderr, "No recordings in %s\n", cfg.Journal.Path)
		return nil
	}
	return err
}
