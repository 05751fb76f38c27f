// Package daemon holds ridetally's runtime configuration: where data lives,
// which time zone the week is counted in, and how the local API listens.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the TOML file read from the home directory.
const ConfigFileName = "config.toml"

// Config is the full configuration file.
type Config struct {
	Tracker TrackerConfig `toml:"tracker"`
	API     APIConfig     `toml:"api"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

// TrackerConfig controls how rides are classified and stored.
type TrackerConfig struct {
	Timezone string `toml:"timezone"`  // IANA name, or "Local"
	StateKey string `toml:"state_key"` // state record name
}

// APIConfig controls the local HTTP dashboard.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Verbose bool `toml:"verbose"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		Tracker: TrackerConfig{
			Timezone: "Local",
			StateKey: "ridetally-state-v3",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Home returns the data directory: $RIDETALLY_HOME, else ~/.ridetally.
func Home() (string, error) {
	if h := os.Getenv("RIDETALLY_HOME"); h != "" {
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".ridetally"), nil
}

// LoadConfig reads <home>/config.toml over the defaults. A missing file
// yields the defaults; a malformed one is an error.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(home, ConfigFileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Tracker.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Tracker.Timezone)
	if err != nil {
		return nil, fmt.Errorf("tracker.timezone %q: %w", c.Tracker.Timezone, err)
	}
	return loc, nil
}

// Addr returns the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}
