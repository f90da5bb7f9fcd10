package sensor

import (
	"sort"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// overridable in tests
var (
	getPortsList         = serial.GetPortsList
	getDetailedPortsList = enumerator.GetDetailedPortsList
)

// Device describes one serial port found on the host.
type Device struct {
	Name    string // e.g. "/dev/ttyUSB0" or "COM3"
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// Label returns the text shown in the device picker.
func (d Device) Label() string {
	if !d.USB {
		return d.Name
	}
	label := d.Name + "  " + FriendlyName(d.VID)
	if d.Product != "" {
		label += " (" + d.Product + ")"
	}
	return label
}

// ListDevices returns the identifiers of all serial ports currently present.
// An empty slice is a valid answer.
func ListDevices() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ports))
	out = append(out, ports...)
	sort.Strings(out)
	return out, nil
}

// DescribeDevices returns the serial ports together with their USB details
// where the platform exposes them.
func DescribeDevices() ([]Device, error) {
	details, err := getDetailedPortsList()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(details))
	for _, p := range details {
		if p == nil {
			continue
		}
		devices = append(devices, Device{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// Discover prefers DescribeDevices and falls back to plain port names on
// platforms where USB enumeration fails.
func Discover() ([]Device, error) {
	devices, err := DescribeDevices()
	if err == nil {
		return devices, nil
	}
	names, listErr := ListDevices()
	if listErr != nil {
		return nil, err
	}
	devices = make([]Device, len(names))
	for i, n := range names {
		devices[i] = Device{Name: n}
	}
	return devices, nil
}
