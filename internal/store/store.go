// Package store writes and reads the single-sample CSV snapshots produced by
// the recorder. Each file has the format:
//
//	Timestamp,PPM
//	2024-05-01 12:00:03,612
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TimeLayout is the timestamp format of the Timestamp column.
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"Timestamp", "PPM"}

// ErrEmptyPath is returned by Write when no destination is given.
var ErrEmptyPath = errors.New("store: empty destination path")

// Row is one persisted snapshot.
type Row struct {
	Timestamp string
	PPM       int
}

// NewRow formats t with TimeLayout and pairs it with ppm.
func NewRow(t time.Time, ppm int) Row {
	return Row{Timestamp: t.Format(TimeLayout), PPM: ppm}
}

// Time parses the row's timestamp in the local time zone.
func (r Row) Time() (time.Time, error) {
	return time.ParseInLocation(TimeLayout, r.Timestamp, time.Local)
}

// CSVWriter creates or overwrites a CSV file holding exactly one row.
type CSVWriter struct {
	// MkdirAll creates missing parent directories before writing.
	MkdirAll bool
}

// Write replaces the file at path with the header and row.
func (w CSVWriter) Write(path string, row Row) error {
	if path == "" {
		return ErrEmptyPath
	}
	if w.MkdirAll {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("cannot create directory for %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	cw.Write(header)
	cw.Write([]string{row.Timestamp, strconv.Itoa(row.PPM)})
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// LoadFile reads all rows from a snapshot file. The header and malformed rows
// are skipped.
func LoadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == header[0] {
			continue
		}
		if len(rec) < 2 {
			continue
		}
		ppm, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		rows = append(rows, Row{Timestamp: rec[0], PPM: ppm})
	}
	return rows, nil
}

// SuggestName returns the default snapshot file name for t, e.g.
// co2_20240501_120003.csv.
func SuggestName(t time.Time) string {
	return "co2_" + t.Format("20060102_150405") + ".csv"
}
