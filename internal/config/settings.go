package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CurrentVersion is the settings file format version.
const CurrentVersion = 1

// Radio driver names.
const (
	DriverSim   = "sim"
	DriverNMCLI = "nmcli"
)

// Settings is the agent configuration file.
// The device record (WiFi, AP, credentials) is not stored here; it lives in
// the device storage and is managed through the control API.
type Settings struct {
	Version  int             `yaml:"version"`
	LogLevel string          `yaml:"log_level"`
	Storage  StorageSettings `yaml:"storage"`
	HTTP     HTTPSettings    `yaml:"http"`
	Radio    RadioSettings   `yaml:"radio"`
	Loop     LoopSettings    `yaml:"loop"`
	Time     TimeSettings    `yaml:"time"`
}

// StorageSettings selects the backing store for the device record.
type StorageSettings struct {
	Root string `yaml:"root"`
	// Record is the record path inside the storage.
	Record string `yaml:"record"`
	// Memory keeps everything in RAM; nothing survives a restart.
	Memory bool `yaml:"memory"`
}

// HTTPSettings configures the control API transport.
type HTTPSettings struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

type RadioSettings struct {
	Driver         string        `yaml:"driver"`
	Interface      string        `yaml:"interface"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LoopSettings tunes the connectivity loop.
type LoopSettings struct {
	// Enforce restarts the agent when neither WiFi nor the AP comes up.
	Enforce           bool          `yaml:"enforce"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	// LinkCheckInterval is how often the loop asks the radio for link status.
	LinkCheckInterval time.Duration `yaml:"link_check_interval"`
	MaxJobsPerTick    int           `yaml:"max_jobs_per_tick"`
}

type TimeSettings struct {
	Servers  []string      `yaml:"servers"`
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Version:  CurrentVersion,
		LogLevel: "info",
		Storage: StorageSettings{
			Root:   "/var/lib/onebiot",
			Record: "/config.json",
		},
		HTTP: HTTPSettings{
			Port:              80,
			RequestsPerSecond: 20,
			Burst:             10,
			RequestTimeout:    5 * time.Second,
		},
		Radio: RadioSettings{
			Driver:         DriverSim,
			Interface:      "wlan0",
			ConnectTimeout: 20 * time.Second,
		},
		Loop: LoopSettings{
			Enforce:           true,
			TickInterval:      50 * time.Millisecond,
			ReconnectInterval: 10 * time.Second,
			LinkCheckInterval: time.Second,
			MaxJobsPerTick:    4,
		},
		Time: TimeSettings{
			Servers:  []string{"pool.ntp.org", "time.nist.gov"},
			Attempts: 20,
			Interval: 500 * time.Millisecond,
			Timeout:  15 * time.Second,
		},
	}
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports every out-of-range value.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Version == CurrentVersion, "unsupported settings version: %d (expected %d)", s.Version, CurrentVersion)
	check(validLevels[s.LogLevel], "log_level must be one of debug, info, warn, error (got %q)", s.LogLevel)

	check(s.Storage.Memory || s.Storage.Root != "", "storage.root is required unless storage.memory is set")
	check(strings.HasPrefix(s.Storage.Record, "/"), "storage.record must be an absolute path (got %q)", s.Storage.Record)

	check(s.HTTP.Port >= 0 && s.HTTP.Port <= 65535, "http.port out of range: %d", s.HTTP.Port)
	check(s.HTTP.RequestsPerSecond >= 0, "http.requests_per_second cannot be negative")
	check(s.HTTP.Burst >= 1, "http.burst must be at least 1")
	check(s.HTTP.RequestTimeout > 0, "http.request_timeout must be positive")

	check(s.Radio.Driver == DriverSim || s.Radio.Driver == DriverNMCLI,
		"radio.driver must be %q or %q (got %q)", DriverSim, DriverNMCLI, s.Radio.Driver)
	check(s.Radio.Driver != DriverNMCLI || s.Radio.Interface != "", "radio.interface is required for the nmcli driver")
	check(s.Radio.ConnectTimeout > 0, "radio.connect_timeout must be positive")

	check(s.Loop.TickInterval > 0, "loop.tick_interval must be positive")
	check(s.Loop.ReconnectInterval > 0, "loop.reconnect_interval must be positive")
	check(s.Loop.LinkCheckInterval > 0, "loop.link_check_interval must be positive")
	check(s.Loop.MaxJobsPerTick >= 1, "loop.max_jobs_per_tick must be at least 1")

	check(len(s.Time.Servers) > 0, "time.servers cannot be empty")
	check(s.Time.Attempts >= 1, "time.attempts must be at least 1")
	check(s.Time.Interval > 0, "time.interval must be positive")
	check(s.Time.Timeout > 0, "time.timeout must be positive")

	return errors.Join(errs...)
}
