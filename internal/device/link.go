// Package device owns the connection to the serial CO2 sensor. A Link holds at
// most one open port; connecting again always closes the previous port first.
package device

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the sensor firmware talks at.
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultMaxLine     = 4096
)

// Port is the subset of serial.Port the link needs.
type Port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener opens a named port with the given mode.
type Opener func(name string, mode *serial.Mode) (Port, error)

func openSerial(name string, mode *serial.Mode) (Port, error) {
	return serial.Open(name, mode)
}

// Config holds the port parameters applied on every Connect.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
	MaxLine     int
}

// Option customises a Link.
type Option func(*Link)

// WithOpener replaces the function used to open ports.
func WithOpener(open Opener) Option {
	return func(l *Link) { l.open = open }
}

// Link is the swappable handle to the current serial connection.
// Connect and Disconnect are the only mutators; ReadLine is meant to be
// called from a single reader goroutine.
type Link struct {
	mu   sync.Mutex
	cfg  Config
	open Opener
	conn *conn
}

type conn struct {
	device  string
	port    Port
	pending []byte
	chunk   []byte
}

// NewLink creates a disconnected link.
func NewLink(cfg Config, opts ...Option) *Link {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.MaxLine <= 0 {
		cfg.MaxLine = DefaultMaxLine
	}
	l := &Link{cfg: cfg, open: openSerial}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect closes any open port and opens deviceID at the configured baud
// rate, 8N1. On failure the link is left disconnected.
func (l *Link) Connect(deviceID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeLocked()

	if strings.TrimSpace(deviceID) == "" {
		return &ConnectError{Device: deviceID, Err: ErrInvalidDevice}
	}

	mode := &serial.Mode{
		BaudRate: l.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := l.open(deviceID, mode)
	if err != nil {
		return &ConnectError{Device: deviceID, Err: err}
	}
	if err := p.SetReadTimeout(l.cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return &ConnectError{Device: deviceID, Err: err}
	}

	l.conn = &conn{
		device: deviceID,
		port:   p,
		chunk:  make([]byte, 256),
	}
	return nil
}

// Disconnect closes the current port, if any. Safe to call repeatedly.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

// Close is Disconnect under the io.Closer name, used at shutdown.
func (l *Link) Close() error {
	return l.Disconnect()
}

func (l *Link) closeLocked() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.port.Close()
	l.conn = nil
	return err
}

// Device returns the identifier of the open port, or "" when disconnected.
func (l *Link) Device() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ""
	}
	return l.conn.device
}

// Connected reports whether a port is open.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// ReadLine returns the next newline-terminated line without its terminator.
// It waits at most one read timeout and returns ErrNoData if no complete line
// arrived in that time; partial data is kept for the next call.
func (l *Link) ReadLine() (string, error) {
	l.mu.Lock()
	c := l.conn
	l.mu.Unlock()

	if c == nil {
		return "", ErrNotConnected
	}
	return c.readLine(l.cfg.MaxLine)
}

func (c *conn) readLine(maxLine int) (string, error) {
	if line, ok := c.popLine(); ok {
		return line, nil
	}

	n, err := c.port.Read(c.chunk)
	if err != nil {
		return "", &ReadError{Device: c.device, Err: err}
	}
	if n == 0 {
		return "", ErrNoData
	}
	c.pending = append(c.pending, c.chunk[:n]...)

	if line, ok := c.popLine(); ok {
		return line, nil
	}
	if len(c.pending) > maxLine {
		c.pending = c.pending[:0]
		return "", &ReadError{Device: c.device, Err: ErrLineTooLong}
	}
	return "", ErrNoData
}

func (c *conn) popLine() (string, bool) {
	idx := bytes.IndexByte(c.pending, '\n')
	if idx < 0 {
		return "", false
	}
	line := strings.TrimSuffix(string(c.pending[:idx]), "\r")
	c.pending = append(c.pending[:0], c.pending[idx+1:]...)
	return line, true
}
