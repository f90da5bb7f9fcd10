package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Serial.Baud <= 0 {
		errs = append(errs, fmt.Sprintf("serial.baud must be > 0, got %d", cfg.Serial.Baud))
	}
	if cfg.Serial.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("serial.read_timeout must be > 0, got %s", cfg.Serial.ReadTimeout))
	}
	if cfg.Buffer.Capacity <= 0 {
		errs = append(errs, fmt.Sprintf("buffer.capacity must be > 0, got %d", cfg.Buffer.Capacity))
	}
	if cfg.Producer.IdleWait <= 0 {
		errs = append(errs, fmt.Sprintf("producer.idle_wait must be > 0, got %s", cfg.Producer.IdleWait))
	}
	if cfg.Display.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("display.interval must be > 0, got %s", cfg.Display.Interval))
	}
	if cfg.Display.YMax <= 0 {
		errs = append(errs, fmt.Sprintf("display.y_max must be > 0, got %d", cfg.Display.YMax))
	}

	if len(cfg.Record.Intervals) == 0 {
		errs = append(errs, "record.intervals must list at least one delay")
	}
	seen := make(map[int]bool)
	for _, s := range cfg.Record.Intervals {
		if s <= 0 {
			errs = append(errs, fmt.Sprintf("record.intervals: delay %d must be a positive number of seconds", s))
			continue
		}
		if seen[s] {
			errs = append(errs, fmt.Sprintf("record.intervals: duplicate delay %d", s))
		}
		seen[s] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
