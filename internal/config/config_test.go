package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Serial:   SerialConfig{Baud: 9600, ReadTimeout: 100 * time.Millisecond},
		Buffer:   BufferConfig{Capacity: 150},
		Producer: ProducerConfig{IdleWait: 10 * time.Millisecond},
		Display:  DisplayConfig{Interval: 50 * time.Millisecond, YMax: 120},
		Record:   RecordConfig{Intervals: []int{1, 2, 3}, Dir: "."},
	}
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New())
	require.NoError(t, err)

	require.Equal(t, 9600, cfg.Serial.Baud)
	require.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	require.Equal(t, 150, cfg.Buffer.Capacity)
	require.Equal(t, 10*time.Millisecond, cfg.Producer.IdleWait)
	require.Equal(t, 50*time.Millisecond, cfg.Display.Interval)
	require.Equal(t, 120, cfg.Display.YMax)
	require.Equal(t, []int{1, 2, 3}, cfg.Record.Intervals)
	require.Equal(t, "co2monitor.db", cfg.Journal.Path)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))

	yml := `
serial:
  device: /dev/ttyACM0
  read_timeout: 250ms
buffer:
  capacity: 300
record:
  intervals: [2, 5]
  dir: /tmp/co2
journal:
  path: ""
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "co2monitor.yml"), []byte(yml), 0o644))

	cfg, err := Load(New())
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	require.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	require.Equal(t, 300, cfg.Buffer.Capacity)
	require.Equal(t, []int{2, 5}, cfg.Record.Intervals)
	require.Equal(t, "/tmp/co2", cfg.Record.Dir)
	require.Equal(t, "", cfg.Journal.Path)
	require.Equal(t, 9600, cfg.Serial.Baud)
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CO2MONITOR_SERIAL_DEVICE", "/dev/ttyUSB3")
	t.Setenv("CO2MONITOR_BUFFER_CAPACITY", "42")

	cfg, err := Load(New())
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyUSB3", cfg.Serial.Device)
	require.Equal(t, 42, cfg.Buffer.Capacity)
}

func TestFlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())

	v := New()
	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--device", "/dev/ttyS1", "--journal", "j.db"}))
	require.NoError(t, BindFlags(v, fs))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS1", cfg.Serial.Device)
	require.Equal(t, "j.db", cfg.Journal.Path)
	require.Equal(t, 9600, cfg.Serial.Baud, "unset flag must not override the default")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(validConfig()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero baud", func(c *Config) { c.Serial.Baud = 0 }},
		{"zero capacity", func(c *Config) { c.Buffer.Capacity = 0 }},
		{"zero idle wait", func(c *Config) { c.Producer.IdleWait = 0 }},
		{"zero display interval", func(c *Config) { c.Display.Interval = 0 }},
		{"no intervals", func(c *Config) { c.Record.Intervals = nil }},
		{"negative interval", func(c *Config) { c.Record.Intervals = []int{1, -2} }},
		{"duplicate interval", func(c *Config) { c.Record.Intervals = []int{2, 2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}
}
