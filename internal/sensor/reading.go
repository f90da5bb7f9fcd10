// Package sensor defines the CO2 reading type, the line parser used on the
// serial stream, and discovery of the serial devices a sensor can sit behind.
package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reading represents a single CO2 concentration sample from the device.
type Reading struct {
	PPM int       // parts per million, as reported by the device
	At  time.Time // ingest time on this host
}

// ParseError reports a line that does not hold an integer reading.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse reading %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseLine trims surrounding whitespace and parses the line as a base-10
// integer. No range or unit checks are applied.
func ParseLine(line string) (int, error) {
	s := strings.TrimSpace(line)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{Line: s, Err: err}
	}
	return v, nil
}
