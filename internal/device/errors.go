package device

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

var (
	// ErrNotConnected is returned by ReadLine when no port is open.
	ErrNotConnected = errors.New("device: not connected")
	// ErrNoData is returned by ReadLine when the read timeout elapsed before a
	// complete line arrived.
	ErrNoData = errors.New("device: no data available")
	// ErrInvalidDevice is returned by Connect for an empty device identifier.
	ErrInvalidDevice = errors.New("device: invalid device identifier")
	// ErrLineTooLong marks a fragment dropped for exceeding the line limit.
	ErrLineTooLong = errors.New("device: line too long")
)

// ConnectError reports a device that could not be opened.
type ConnectError struct {
	Device string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %q: %s", e.Device, describe(e.Err))
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReadError reports a transport failure while reading from an open port.
type ReadError struct {
	Device string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Device, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// describe turns the serial library's error codes into operator-facing text.
func describe(err error) string {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return err.Error()
	}
	switch pe.Code() {
	case serial.PortBusy:
		return "port already in use"
	case serial.PortNotFound:
		return "port not found"
	case serial.PermissionDenied:
		return "permission denied"
	case serial.InvalidSerialPort:
		return "not a serial port"
	case serial.InvalidSpeed:
		return "unsupported baud rate"
	default:
		return pe.Error()
	}
}
