package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/luki/co2monitor/internal/sensor"
)

func TestSparkline(t *testing.T) {
	values := []int{30, 35, 40, 50, 60, 70, 80, 90, 100}
	result := RenderSparkline(values, 20, 0, 120, DefaultLevels)
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineEmpty(t *testing.T) {
	if got := RenderSparkline(nil, 0, 0, 120, DefaultLevels); got != "" {
		t.Errorf("zero width should render nothing, got %q", got)
	}
	if got := RenderSparklineReadings(nil, 10, 0, 120, DefaultLevels); !strings.Contains(got, "╌") {
		t.Errorf("empty series should render a placeholder, got %q", got)
	}
}

func TestSparklineMinuteTicks(t *testing.T) {
	base := time.Date(2026, 2, 21, 14, 0, 50, 0, time.Local)
	var rs []sensor.Reading
	for i := 0; i < 20; i++ {
		rs = append(rs, sensor.Reading{
			PPM: 40 + i%5,
			At:  base.Add(time.Duration(i) * time.Second),
		})
	}

	result := RenderSparklineReadings(rs, 20, 0, 120, DefaultLevels)
	if strings.Count(result, "│") != 1 {
		t.Errorf("expected exactly one minute tick mark in %q", result)
	}

	timeline := RenderTimeline(rs, 20)
	if !strings.Contains(timeline, "14:01") {
		t.Errorf("expected 14:01 label in timeline %q", timeline)
	}
}

func TestLevelColor(t *testing.T) {
	tests := []struct {
		ppm  int
		want string
	}{
		{400, "78"},
		{900, "220"},
		{1000, "208"},
		{2000, "196"},
	}
	for _, tt := range tests {
		if got := LevelColor(tt.ppm, DefaultLevels); string(got) != tt.want {
			t.Errorf("LevelColor(%d) = %s, want %s", tt.ppm, got, tt.want)
		}
	}
	if got := LevelColor(5000, Levels{}); string(got) != "78" {
		t.Errorf("disabled levels should stay green, got %s", got)
	}
}

func TestXRange(t *testing.T) {
	if got := XRange(10, 150); got != 150 {
		t.Errorf("XRange(10,150) = %d", got)
	}
	if got := XRange(200, 150); got != 200 {
		t.Errorf("XRange(200,150) = %d", got)
	}
}

func TestValueText(t *testing.T) {
	if got := ValueText(415, true); got != "415 PPM" {
		t.Errorf("got %q", got)
	}
	if got := ValueText(0, false); got != "--- PPM" {
		t.Errorf("got %q", got)
	}
}

func TestLevelScale(t *testing.T) {
	got := RenderLevelScale(60, 0, 120, DefaultLevels, 30)
	if !strings.Contains(got, "◆") {
		t.Errorf("scale should mark the current value: %q", got)
	}
}
