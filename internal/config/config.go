// Package config loads co2monitor settings from configs/co2monitor.yml,
// CO2MONITOR_* environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "co2monitor"
	envPrefix  = "CO2MONITOR"
)

type Config struct {
	Serial   SerialConfig   `mapstructure:"serial"`
	Buffer   BufferConfig   `mapstructure:"buffer"`
	Producer ProducerConfig `mapstructure:"producer"`
	Display  DisplayConfig  `mapstructure:"display"`
	Record   RecordConfig   `mapstructure:"record"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Log      LogConfig      `mapstructure:"log"`
}

// ---- SERIAL ----

type SerialConfig struct {
	Device      string        `mapstructure:"device"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// ---- BUFFER / PRODUCER ----

type BufferConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type ProducerConfig struct {
	IdleWait time.Duration `mapstructure:"idle_wait"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	YMax     int           `mapstructure:"y_max"`
}

// ---- RECORDING ----

type RecordConfig struct {
	Intervals []int  `mapstructure:"intervals"` // seconds
	Dir       string `mapstructure:"dir"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"` // empty disables the journal
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// New returns a viper instance with defaults, search paths and environment
// binding configured.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("serial.device", "")
	v.SetDefault("serial.baud", 9600)
	v.SetDefault("serial.read_timeout", 100*time.Millisecond)
	v.SetDefault("buffer.capacity", 150)
	v.SetDefault("producer.idle_wait", 10*time.Millisecond)
	v.SetDefault("display.interval", 50*time.Millisecond)
	v.SetDefault("display.y_max", 120)
	v.SetDefault("record.intervals", []int{1, 2, 3})
	v.SetDefault("record.dir", ".")
	v.SetDefault("journal.path", "co2monitor.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "co2monitor.log")

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("$HOME/.config/co2monitor")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Flags returns the flag set shared by all subcommands.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a config file")
	fs.StringP("device", "d", "", "serial device to connect to")
	fs.Int("baud", 9600, "serial baud rate")
	fs.IntP("delay", "n", 1, "recording delay in seconds")
	fs.StringP("out", "o", "", "destination CSV file for the recording")
	fs.String("journal", "", "recording journal database path")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	return fs
}

// BindFlags maps command-line flags onto configuration keys. Only flags the
// user actually set override file and environment values.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"serial.device": "device",
		"serial.baud":   "baud",
		"journal.path":  "journal",
		"log.level":     "log-level",
	}
	for key, flag := range bindings {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
	}
	return nil
}

// Load reads the config file (if any), unmarshals and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
