// Package monitor implements the live CO2 monitoring TUI using BubbleTea: a
// sparkline of the sliding window, the latest value, a device picker and the
// snapshot recording controls.
package monitor

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/co2monitor/internal/chart"
	"github.com/luki/co2monitor/internal/history"
	"github.com/luki/co2monitor/internal/logger"
	"github.com/luki/co2monitor/internal/producer"
	"github.com/luki/co2monitor/internal/recorder"
	"github.com/luki/co2monitor/internal/sensor"
)

const (
	defaultInterval = 50 * time.Millisecond
	defaultYMax     = 120
)

// Source is the read side of the sliding window.
type Source interface {
	Snapshot() []sensor.Reading
	Latest() (sensor.Reading, bool)
	Cap() int
}

// Connector is the part of the device link the UI drives.
type Connector interface {
	Connect(deviceID string) error
	Device() string
}

// Trigger starts snapshot recordings and reports whether one is in flight.
type Trigger interface {
	Trigger(ctx context.Context, req recorder.Request) <-chan recorder.Result
	Busy() bool
}

// StatsSource exposes the acquisition counters.
type StatsSource interface {
	Stats() producer.Counters
}

// Config wires the model to the running pipeline.
type Config struct {
	Window    Source
	Link      Connector
	Recorder  Trigger
	Producer  StatsSource // optional
	Prompter  *Prompter   // optional; nil writes to the suggested path
	Devices   func() ([]sensor.Device, error)
	Interval  time.Duration
	YMax      int
	Intervals []int // recording delays in seconds
	Levels    chart.Levels
	Log       *logger.Logger

	// AutoConnect is opened on start when set.
	AutoConnect string
}

type mode int

const (
	modeLive mode = iota
	modePicker
	modePrompt
)

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type devicesMsg struct {
	devices []sensor.Device
	err     error
}

type connectedMsg struct {
	device string
	err    error
}

type resultMsg struct{ res recorder.Result }

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live monitor.
type Model struct {
	cfg Config
	ctx context.Context

	readings []sensor.Reading
	latest   sensor.Reading
	hasValue bool
	stats    history.Stats
	counters producer.Counters

	mode     mode
	devices  []sensor.Device
	cursor   int
	interval int // index into cfg.Intervals

	recording bool
	notice    string
	err       error

	prompt promptMsg
	editor lineEditor

	width     int
	height    int
	lastTick  time.Time
	startTime time.Time
	paused    bool
}

// New creates the initial model. When no device is connected the device
// picker opens first.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.YMax <= 0 {
		cfg.YMax = defaultYMax
	}
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = []int{1, 2, 3}
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Devices == nil {
		cfg.Devices = sensor.Discover
	}
	m := Model{cfg: cfg, ctx: ctx, startTime: time.Now()}
	if cfg.Link.Device() == "" && cfg.AutoConnect == "" {
		m.mode = modePicker
	}
	return m
}

// ── Commands ─────────────────────────────────────────────────────────

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) listDevices() tea.Msg {
	devs, err := m.cfg.Devices()
	return devicesMsg{devices: devs, err: err}
}

func connectCmd(link Connector, device string) tea.Cmd {
	return func() tea.Msg {
		return connectedMsg{device: device, err: link.Connect(device)}
	}
}

func waitResult(ch <-chan recorder.Result) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{res: <-ch}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listDevices, m.tickCmd()}
	if m.cfg.AutoConnect != "" {
		cmds = append(cmds, connectCmd(m.cfg.Link, m.cfg.AutoConnect))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.lastTick = time.Time(msg)
		m.recording = m.cfg.Recorder.Busy()
		if !m.paused {
			m.refresh()
		}
		return m, m.tickCmd()

	case devicesMsg:
		m.devices = msg.devices
		if msg.err != nil {
			m.err = fmt.Errorf("list devices: %w", msg.err)
		}
		if m.cursor >= len(m.devices) {
			m.cursor = 0
		}

	case connectedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.notice = ""
			m.mode = modePicker
			m.cfg.Log.Warnw("connect failed", "device", msg.device, "error", msg.err)
			return m, nil
		}
		m.err = nil
		m.notice = "Connected to " + msg.device
		m.mode = modeLive
		m.cfg.Log.Infow("device connected", "device", msg.device)

	case promptMsg:
		m.prompt = msg
		m.editor.set(msg.suggested)
		m.mode = modePrompt

	case resultMsg:
		m.finishRecording(msg.res)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.answerPrompt(promptReply{cancelled: true})
		return m, tea.Quit
	}

	switch m.mode {
	case modePrompt:
		switch msg.Type {
		case tea.KeyEnter:
			m.answerPrompt(promptReply{path: m.editor.String()})
		case tea.KeyEsc:
			m.answerPrompt(promptReply{cancelled: true})
		default:
			m.editor.handle(msg)
		}
		return m, nil

	case modePicker:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.devices)-1 {
				m.cursor++
			}
		case "R":
			return m, m.listDevices
		case "enter":
			if len(m.devices) == 0 {
				return m, nil
			}
			dev := m.devices[m.cursor].Name
			m.notice = "Connecting to " + dev + "..."
			return m, connectCmd(m.cfg.Link, dev)
		case "esc":
			m.mode = modeLive
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "d":
		m.mode = modePicker
		return m, m.listDevices
	case "i", "tab":
		m.interval = (m.interval + 1) % len(m.cfg.Intervals)
	case "r":
		return m.startRecording()
	case " ", "p":
		m.paused = !m.paused
	}
	return m, nil
}

func (m *Model) refresh() {
	m.readings = m.cfg.Window.Snapshot()
	m.latest, m.hasValue = m.cfg.Window.Latest()
	m.stats = history.Summarize(m.readings)
	if m.cfg.Producer != nil {
		m.counters = m.cfg.Producer.Stats()
	}
}

// visibleReadings returns the tail of the window that fits a chart of the
// given width.
func (m Model) visibleReadings(width int) []sensor.Reading {
	return history.LastN(m.readings, width)
}

// Delay returns the currently selected recording delay in seconds.
func (m Model) Delay() int {
	return m.cfg.Intervals[m.interval]
}

func (m Model) startRecording() (tea.Model, tea.Cmd) {
	delay := m.Delay()
	req := recorder.Request{DelaySeconds: delay}
	if m.cfg.Prompter != nil {
		req.Choose = m.cfg.Prompter.Choose
	}
	ch := m.cfg.Recorder.Trigger(m.ctx, req)

	// rejections and invalid requests are delivered before Trigger returns
	select {
	case res := <-ch:
		m.finishRecording(res)
		return m, nil
	default:
	}

	m.recording = true
	m.err = nil
	m.notice = fmt.Sprintf("Recording... please wait %d seconds", delay)
	return m, waitResult(ch)
}

func (m *Model) finishRecording(res recorder.Result) {
	if res.Outcome != recorder.Rejected {
		m.recording = false
	}
	if m.mode == modePrompt {
		m.mode = modeLive
	}
	switch res.Outcome {
	case recorder.Recorded, recorder.Cancelled, recorder.Rejected:
		m.err = nil
		m.notice = res.String()
	default:
		m.err = fmt.Errorf("%s", res.String())
		m.notice = ""
	}
}

func (m *Model) answerPrompt(r promptReply) {
	if m.prompt.reply == nil {
		return
	}
	m.prompt.reply <- r
	m.prompt = promptMsg{}
	m.mode = modeLive
	if !r.cancelled {
		m.notice = "Saving " + r.path + "..."
	}
}
