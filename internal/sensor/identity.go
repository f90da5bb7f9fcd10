package sensor

import "strings"

// usbIdentityMap maps USB vendor IDs to the bridge chip usually found on
// hobby CO2 sensor boards.
var usbIdentityMap = []struct {
	vid  string
	name string
}{
	{"1a86", "CH340"},
	{"0403", "FTDI"},
	{"10c4", "CP210x"},
	{"067b", "PL2303"},
	{"2341", "Arduino"},
	{"2a03", "Arduino"},
	{"1b4f", "SparkFun"},
	{"239a", "Adafruit"},
	{"303a", "ESP32"},
	{"2e8a", "Raspberry Pi Pico"},
	{"0483", "STM32"},
}

// FriendlyName returns a human-readable bridge name for a USB vendor ID.
func FriendlyName(vid string) string {
	lower := strings.TrimPrefix(strings.ToLower(vid), "0x")
	for _, entry := range usbIdentityMap {
		if lower == entry.vid {
			return entry.name
		}
	}
	return "Serial"
}
