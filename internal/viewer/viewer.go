// Package viewer implements the recording journal browser TUI: a list of
// past snapshot attempts with their outcomes and a sparkline of the values
// that were captured.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/co2monitor/internal/chart"
	"github.com/luki/co2monitor/internal/journal"
	"github.com/luki/co2monitor/internal/sensor"
)

// ErrEmpty is returned by Run when the journal holds no recordings.
var ErrEmpty = errors.New("viewer: journal is empty")

// Lister loads journal entries, newest first. *journal.SQLite implements it.
type Lister interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Run launches the journal browser TUI.
func Run(ctx context.Context, src Lister, limit int) error {
	entries, err := src.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return ErrEmpty
	}

	p := tea.NewProgram(
		newModel(ctx, src, limit, entries),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorDevice   = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

type filter int

const (
	filterAll filter = iota
	filterRecorded
	filterProblems
)

func (f filter) String() string {
	switch f {
	case filterRecorded:
		return "recorded"
	case filterProblems:
		return "problems"
	default:
		return "all"
	}
}

type reloadMsg struct {
	entries []journal.Entry
	err     error
}

type model struct {
	ctx   context.Context
	src   Lister
	limit int

	all     []journal.Entry // newest first
	visible []journal.Entry
	filter  filter
	cursor  int
	width   int
	height  int
	err     error
}

func newModel(ctx context.Context, src Lister, limit int, entries []journal.Entry) model {
	m := model{ctx: ctx, src: src, limit: limit, all: entries}
	m.applyFilter()
	return m
}

func (m *model) applyFilter() {
	m.visible = nil
	for _, e := range m.all {
		switch m.filter {
		case filterRecorded:
			if e.Outcome != "recorded" {
				continue
			}
		case filterProblems:
			if e.Outcome == "recorded" {
				continue
			}
		}
		m.visible = append(m.visible, e)
	}
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) reload() tea.Msg {
	entries, err := m.src.List(m.ctx, m.limit)
	return reloadMsg{entries: entries, err: err}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		case "home", "g":
			m.cursor = 0
		case "end", "G":
			if len(m.visible) > 0 {
				m.cursor = len(m.visible) - 1
			}
		case "f":
			m.filter = (m.filter + 1) % 3
			m.applyFilter()
		case "R":
			return m, m.reload
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case reloadMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.all = msg.entries
		m.applyFilter()
	}

	return m, nil
}

// capturedSeries returns the captured values oldest first.
func capturedSeries(entries []journal.Entry) []sensor.Reading {
	var rs []sensor.Reading
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Captured {
			rs = append(rs, sensor.Reading{PPM: entries[i].PPM, At: entries[i].CompletedAt.Local()})
		}
	}
	return rs
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	width := m.width - 2
	if width < 40 {
		width = 40
	}

	sections := []string{m.renderTitleBar(width)}
	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).Bold(true).Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err)))
	}
	sections = append(sections, m.renderChart(width), m.renderList(width), m.renderDetail(width), m.renderFooter(width))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	lines := strings.Split(content, "\n")
	if m.height > 0 && len(lines) > m.height {
		lines = lines[:m.height]
	}
	return strings.Join(lines, "\n")
}

func (m model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().Bold(true).Foreground(colorTitleFg).Render("CO2 RECORDINGS")
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	right := dimS.Render(fmt.Sprintf("%d shown │ %d total │ filter: %s", len(m.visible), len(m.all), m.filter))

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m model) renderChart(width int) string {
	series := capturedSeries(m.visible)
	chartWidth := width - 6
	if chartWidth < 10 {
		chartWidth = 10
	}

	yMax := 0
	for _, r := range series {
		if r.PPM > yMax {
			yMax = r.PPM
		}
	}
	yMax += yMax / 10

	label := lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf("captured values (%d)", len(series)))
	spark := chart.RenderSparklineReadings(series, chartWidth, 0, yMax, chart.DefaultLevels)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, label, spark))
}

func (m model) listRows() int {
	rows := m.height - 16
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m model) renderList(width int) string {
	n := m.listRows()
	start := 0
	if m.cursor >= n {
		start = m.cursor - n + 1
	}
	end := start + n
	if end > len(m.visible) {
		end = len(m.visible)
	}

	var rows []string
	if len(m.visible) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorDim).Render("no recordings match the filter"))
	}
	for i := start; i < end; i++ {
		e := m.visible[i]
		value := "   ---"
		if e.Captured {
			value = fmt.Sprintf("%6d", e.PPM)
		}
		line := fmt.Sprintf("%s  %ds  %s  %s",
			e.RequestedAt.Local().Format("2006-01-02 15:04:05"), e.DelaySeconds, value,
			lipgloss.NewStyle().Width(14).Render(e.Outcome))
		if e.Path != "" {
			line += "  " + e.Path
		}

		style := lipgloss.NewStyle().Foreground(outcomeColor(e.Outcome))
		prefix := "  "
		if i == m.cursor {
			prefix = "▸ "
			style = style.Bold(true)
		}
		rows = append(rows, prefix+style.Render(line))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderDetail(width int) string {
	if len(m.visible) == 0 {
		return ""
	}
	e := m.visible[m.cursor]
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(colorLabel)

	field := func(k, v string) string {
		return dimS.Render(fmt.Sprintf("%-10s", k)) + valS.Render(v)
	}
	rows := []string{
		field("id", e.ID),
		field("device", lipgloss.NewStyle().Foreground(colorDevice).Render(orDash(e.Device))),
		field("requested", e.RequestedAt.Local().Format("2006-01-02 15:04:05.000")),
		field("completed", e.CompletedAt.Local().Format("2006-01-02 15:04:05.000")),
		field("value", chart.ValueText(e.PPM, e.Captured)),
		field("file", orDash(e.Path)),
	}
	if e.Error != "" {
		rows = append(rows, field("error", lipgloss.NewStyle().Foreground(colorCrit).Render(e.Error)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  j/k") + keyS.Render(":move") +
		dimS.Render("  f") + keyS.Render(":filter") +
		dimS.Render("  R") + keyS.Render(":reload")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

func outcomeColor(outcome string) lipgloss.Color {
	switch outcome {
	case "recorded":
		return colorOk
	case "cancelled", "rejected":
		return colorWarn
	case "no data", "writer failed":
		return colorCrit
	default:
		return colorLabel
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
