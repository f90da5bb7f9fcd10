// Package chart provides sparkline rendering of CO2 readings with
// color-coded concentration levels, minute tick marks, timeline labels and a
// level scale bar.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/co2monitor/internal/sensor"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Levels are the PPM thresholds used for coloring. A zero field is disabled.
type Levels struct {
	Elevated int
	High     int
}

// DefaultLevels follow common indoor air guidance.
var DefaultLevels = Levels{Elevated: 1000, High: 1500}

// LevelColor returns the color for a PPM value given the levels.
func LevelColor(ppm int, lv Levels) lipgloss.Color {
	switch {
	case lv.High > 0 && ppm >= lv.High:
		return lipgloss.Color("196") // red
	case lv.Elevated > 0 && ppm >= lv.Elevated:
		return lipgloss.Color("208") // orange
	case lv.Elevated > 0 && float64(ppm) >= float64(lv.Elevated)*0.85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// XRange is the number of columns the chart spans: at least minSpan, more
// once the series is longer.
func XRange(n, minSpan int) int {
	if n > minSpan {
		return n
	}
	return minSpan
}

// RenderSparkline renders bare values without timeline ticks.
func RenderSparkline(values []int, width, yMin, yMax int, lv Levels) string {
	if width <= 0 {
		return ""
	}
	rs := make([]sensor.Reading, len(values))
	for i, v := range values {
		rs[i] = sensor.Reading{PPM: v}
	}
	return RenderSparklineReadings(rs, width, yMin, yMax, lv)
}

// RenderSparklineReadings renders a sparkline with minute tick marks on the
// timeline. Values outside [yMin, yMax] are clamped.
func RenderSparklineReadings(rs []sensor.Reading, width, yMin, yMax int, lv Levels) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(rs) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(rs) > width {
		rs = rs[len(rs)-width:]
	}

	padLen := width - len(rs)
	span := float64(yMax - yMin)
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, r := range rs {
		if isMinuteTick(rs, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := float64(r.PPM-yMin) / span
		norm = math.Max(0, math.Min(1, norm))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		style := lipgloss.NewStyle().Foreground(LevelColor(r.PPM, lv))
		if lv.High > 0 && r.PPM >= lv.High {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

func isMinuteTick(rs []sensor.Reading, i int) bool {
	at := rs[i].At
	if at.IsZero() {
		return false
	}
	// readings arrive several times a second, so only the first one of a
	// new minute gets the tick
	if i == 0 || rs[i-1].At.IsZero() {
		return at.Second() == 0
	}
	return at.Minute() != rs[i-1].At.Minute()
}

// RenderTimeline renders HH:MM labels under the sparkline at each minute
// tick position.
func RenderTimeline(rs []sensor.Reading, width int) string {
	if len(rs) == 0 || width <= 0 {
		return ""
	}

	if len(rs) > width {
		rs = rs[len(rs)-width:]
	}
	padLen := width - len(rs)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	lastEnd := -1
	for i, r := range rs {
		if !isMinuteTick(rs, i) {
			continue
		}
		label := r.At.Format("15:04")
		start := padLen + i - 2
		if start < 0 {
			start = 0
		}
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderLevelScale renders a scale bar showing the current value against the
// level markers.
func RenderLevelScale(current, yMin, yMax int, lv Levels, width int) string {
	if width <= 0 {
		return ""
	}

	span := float64(yMax - yMin)
	if span <= 0 {
		span = 1
	}
	pos := func(v int) int {
		return int(float64(width-1) * float64(v-yMin) / span)
	}

	elevatedPos, highPos := -1, -1
	if lv.Elevated > yMin {
		elevatedPos = pos(lv.Elevated)
	}
	if lv.High > yMin {
		highPos = pos(lv.High)
	}

	curPos := pos(current)
	if curPos < 0 {
		curPos = 0
	}
	if curPos >= width {
		curPos = width - 1
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(LevelColor(current, lv)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case highPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▪"))
		case elevatedPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}
	return sb.String()
}

// ValueText is the plain big-number label: "<n> PPM", or "--- PPM" when no
// reading is available.
func ValueText(ppm int, ok bool) string {
	if !ok {
		return "--- PPM"
	}
	return fmt.Sprintf("%d PPM", ppm)
}

// RenderValue renders ValueText with level coloring.
func RenderValue(ppm int, ok bool, lv Levels) string {
	s := ValueText(ppm, ok)
	if !ok {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(s)
	}
	style := lipgloss.NewStyle().Foreground(LevelColor(ppm, lv)).Bold(true)
	return style.Render(s)
}
