package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/co2monitor/internal/chart"
)

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
	colorHigh     = lipgloss.Color("208")
	colorCrit     = lipgloss.Color("196")
	colorSelected = lipgloss.Color("229")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{m.renderTitleBar(contentWidth)}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Width(contentWidth).
			Padding(0, 1).
			Render(fmt.Sprintf(" ERROR: %v", m.err)))
	}
	if m.notice != "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorWarn).
			Width(contentWidth).
			Padding(0, 1).
			Render(" "+m.notice))
	}

	switch m.mode {
	case modePicker:
		sections = append(sections, m.renderPicker(contentWidth))
	case modePrompt:
		sections = append(sections, m.renderPanel(contentWidth), m.renderPrompt(contentWidth))
	default:
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	if m.height > 0 && len(lines) > m.height {
		lines = lines[:m.height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("CO2 MONITOR")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{dimS.Render("up " + fmtDuration(time.Since(m.startTime)))}

	if dev := m.cfg.Link.Device(); dev != "" {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorDevice).Render(dev))
	} else {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorCrit).Render("no device"))
	}
	if !m.lastTick.IsZero() {
		statusParts = append(statusParts, dimS.Render(m.lastTick.Format("15:04:05")))
	}
	if m.paused {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorCrit).Bold(true).Render("PAUSED"))
	}
	if m.recording {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorCrit).Render("REC"))
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

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

func (m Model) renderPanel(totalWidth int) string {
	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := chart.XRange(len(m.readings), m.cfg.Window.Cap())
	if chartWidth > innerWidth-2 {
		chartWidth = innerWidth - 2
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var rows []string

	big := chart.RenderValue(m.latest.PPM, m.hasValue, m.cfg.Levels)
	rows = append(rows, big)

	yMax := m.cfg.YMax
	if m.hasValue {
		rows = append(rows, chart.RenderLevelScale(m.latest.PPM, 0, yMax, m.cfg.Levels, chartWidth+2))
	}

	visible := m.visibleReadings(chartWidth)
	spark := chart.RenderSparklineReadings(visible, chartWidth, 0, yMax, m.cfg.Levels)
	rows = append(rows, frameL+spark+frameR)
	if tl := chart.RenderTimeline(visible, chartWidth); strings.TrimSpace(tl) != "" {
		rows = append(rows, " "+tl)
	}

	stats := dimS.Render("n") + valS.Render(fmt.Sprintf(" %d/%d", m.stats.Count, m.cfg.Window.Cap()))
	if m.stats.Count > 0 {
		stats += dimS.Render("  avg") + valS.Render(fmt.Sprintf(" %.1f", m.stats.Avg)) +
			dimS.Render("  lo") + valS.Render(fmt.Sprintf(" %d", m.stats.Min)) +
			dimS.Render("  pk") + valS.Render(fmt.Sprintf(" %d", m.stats.Peak))
	}
	stats += dimS.Render("  delay") + valS.Render(fmt.Sprintf(" %ds", m.Delay()))
	if m.cfg.Producer != nil {
		stats += dimS.Render("  lines") + valS.Render(fmt.Sprintf(" %d", m.counters.Lines)) +
			dimS.Render("  bad") + valS.Render(fmt.Sprintf(" %d", m.counters.Rejected))
	}
	rows = append(rows, stats)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderPicker(totalWidth int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render("Select a serial device")

	rows := []string{title, ""}
	if len(m.devices) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorDim).Render("No serial devices found. Press R to rescan."))
	}
	for i, d := range m.devices {
		line := "  " + d.Label()
		style := lipgloss.NewStyle().Foreground(colorLabel)
		if i == m.cursor {
			line = "▸ " + d.Label()
			style = style.Foreground(colorSelected).Bold(true)
		}
		if d.Name == m.cfg.Link.Device() {
			line += "  (connected)"
		}
		rows = append(rows, style.Render(line))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderPrompt(totalWidth int) string {
	label := lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Render("Save to: ")
	input := lipgloss.NewStyle().Foreground(colorSelected).Render(m.editor.String()) +
		lipgloss.NewStyle().Reverse(true).Render(" ")
	hint := lipgloss.NewStyle().Foreground(colorDim).Render("enter:save  esc:cancel  ctrl+w:up one dir")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorWarn).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, label+input, hint))
}

func (m Model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	highS := lipgloss.NewStyle().Foreground(colorHigh).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" near ") +
		highS + dimS.Render(" elevated ") +
		critS + dimS.Render(" high ") +
		tickS + dimS.Render(" 1min")

	var keys string
	switch m.mode {
	case modePicker:
		keys = dimS.Render("enter") + keyS.Render(":connect") +
			dimS.Render("  R") + keyS.Render(":rescan") +
			dimS.Render("  esc") + keyS.Render(":back")
	case modePrompt:
		keys = dimS.Render("enter") + keyS.Render(":save") +
			dimS.Render("  esc") + keyS.Render(":cancel")
	default:
		keys = dimS.Render("q") + keyS.Render(":quit") +
			dimS.Render("  r") + keyS.Render(":record") +
			dimS.Render("  i") + keyS.Render(":delay") +
			dimS.Render("  d") + keyS.Render(":device") +
			dimS.Render("  p") + keyS.Render(":pause")
	}

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mins, s)
	}
	return fmt.Sprintf("%dm%02ds", mins, s)
}
