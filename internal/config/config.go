// Package config centralizes all tunable values for autoheadsetd.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds every tunable the daemon reads. Intervals are kept as
// millisecond integers so the JSON file stays plain numbers.
type Config struct {
	// SpeakersName is the exact endpoint name of the fallback output.
	// Matching is literal; no globbing or case folding is applied.
	SpeakersName string `json:"speakers_name"`

	// HeadsetName is the exact endpoint name of the wireless headset output.
	HeadsetName string `json:"headset_name"`

	// HeadsetDeviceClass is the device-type classification the telemetry
	// provider reports for the headset (BlueZ uses the freedesktop icon
	// name "audio-headset" for this class).
	HeadsetDeviceClass string `json:"headset_device_class"`

	// SettlingPollIntervalMS is the tick interval used while either the
	// endpoint binding or the telemetry provider is still coming up.
	// Longer than the steady interval so a slow boot is not hammered.
	SettlingPollIntervalMS int `json:"settling_poll_interval_ms"`

	// SteadyPollIntervalMS is the tick interval once both dependencies
	// have been ready at least once. Never widened back.
	SteadyPollIntervalMS int `json:"steady_poll_interval_ms"`

	// NotificationDurationMS is how long desktop notifications stay visible.
	NotificationDurationMS int `json:"notification_duration_ms"`

	// ListenAddr is the bind address of the status/metrics HTTP server.
	// Empty disables the server.
	ListenAddr string `json:"listen_addr"`

	// LogLevel is one of trace/debug/info/warn/error.
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the values the daemon runs with when no config
// file exists.
func DefaultConfig() Config {
	return Config{
		SpeakersName:           "Speakers",
		HeadsetName:            "Headset",
		HeadsetDeviceClass:     "audio-headset",
		SettlingPollIntervalMS: 10000,
		SteadyPollIntervalMS:   2000,
		NotificationDurationMS: 3000,
		ListenAddr:             "127.0.0.1:9180",
		LogLevel:               "info",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "autoheadset", "config.json")
}

// Load reads the configuration file, falling back to defaults when the
// file does not exist. Values absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the invariants the control loop relies on.
func (c Config) Validate() error {
	if c.SpeakersName == "" {
		return errors.New("speakers_name must not be empty")
	}
	if c.HeadsetName == "" {
		return errors.New("headset_name must not be empty")
	}
	if c.SpeakersName == c.HeadsetName {
		return fmt.Errorf("speakers_name and headset_name are both %q; the switcher needs two distinct endpoints", c.SpeakersName)
	}
	if c.HeadsetDeviceClass == "" {
		return errors.New("headset_device_class must not be empty")
	}
	if c.SettlingPollIntervalMS <= 0 {
		return fmt.Errorf("settling_poll_interval_ms must be positive (got %d)", c.SettlingPollIntervalMS)
	}
	if c.SteadyPollIntervalMS <= 0 {
		return fmt.Errorf("steady_poll_interval_ms must be positive (got %d)", c.SteadyPollIntervalMS)
	}
	if c.SteadyPollIntervalMS > c.SettlingPollIntervalMS {
		return fmt.Errorf("steady_poll_interval_ms (%d) must not exceed settling_poll_interval_ms (%d)", c.SteadyPollIntervalMS, c.SettlingPollIntervalMS)
	}
	if c.NotificationDurationMS < 0 {
		return fmt.Errorf("notification_duration_ms must not be negative (got %d)", c.NotificationDurationMS)
	}
	return nil
}

// SettlingInterval returns the settling poll interval as a duration.
func (c Config) SettlingInterval() time.Duration {
	return time.Duration(c.SettlingPollIntervalMS) * time.Millisecond
}

// SteadyInterval returns the steady-state poll interval as a duration.
func (c Config) SteadyInterval() time.Duration {
	return time.Duration(c.SteadyPollIntervalMS) * time.Millisecond
}

// NotificationDuration returns the notification display time as a duration.
func (c Config) NotificationDuration() time.Duration {
	return time.Duration(c.NotificationDurationMS) * time.Millisecond
}
