// Package config holds the YAML application configuration with first-run
// creation, default normalization, and atomic saves.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// WeatherConfig holds the location and freshness settings for weather data.
type WeatherConfig struct {
	// Latitude and Longitude locate the wearer. Defaults point at Berlin
	// until the user sets their own location.
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`

	// CurrentTTLMinutes is how long current conditions stay fresh.
	CurrentTTLMinutes int `yaml:"current_ttl_minutes" json:"current_ttl_minutes"`

	// ForecastTTLHours is how long the daily forecast stays fresh.
	ForecastTTLHours int `yaml:"forecast_ttl_hours" json:"forecast_ttl_hours"`

	// BaseURL overrides the weather API endpoint. Empty uses the public
	// Open-Meteo endpoint.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the local API.
	Listen string `yaml:"listen" json:"listen"`

	// MetricsListen is the listen address for the Prometheus scrape
	// endpoint.
	MetricsListen string `yaml:"metrics_listen" json:"metrics_listen"`

	// Timezone is the IANA timezone used for the today window
	// (e.g. "Europe/Berlin"). Empty uses the system timezone.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`

	// DataDir is where the key-value store lives.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// DeviceStorePath is the directory holding the on-device calendar
	// files.
	DeviceStorePath string `yaml:"device_store_path" json:"device_store_path"`

	// EventTTLMinutes is how long the merged today view stays fresh.
	EventTTLMinutes int `yaml:"event_ttl_minutes" json:"event_ttl_minutes"`

	// Weather configures the weather collaborator.
	Weather WeatherConfig `yaml:"weather" json:"weather"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8600",
		MetricsListen:   "127.0.0.1:9090",
		DataDir:         defaultDataDir(),
		DeviceStorePath: filepath.Join(defaultDataDir(), "calendars"),
		EventTTLMinutes: 15,
		Weather: WeatherConfig{
			Latitude:          52.52,
			Longitude:         13.405,
			CurrentTTLMinutes: 30,
			ForecastTTLHours:  3,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wearcast"
	}
	return filepath.Join(home, ".local", "share", "wearcast")
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.MetricsListen == "" {
		c.MetricsListen = def.MetricsListen
	}
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.DeviceStorePath == "" {
		c.DeviceStorePath = filepath.Join(c.DataDir, "calendars")
	}
	if c.EventTTLMinutes <= 0 {
		c.EventTTLMinutes = def.EventTTLMinutes
	}
	if c.Weather.CurrentTTLMinutes <= 0 {
		c.Weather.CurrentTTLMinutes = def.Weather.CurrentTTLMinutes
	}
	if c.Weather.ForecastTTLHours <= 0 {
		c.Weather.ForecastTTLHours = def.Weather.ForecastTTLHours
	}
}

// Location resolves the configured timezone, falling back to the system
// timezone when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// EventTTL returns the today-view freshness window as a duration.
func (c *Config) EventTTL() time.Duration {
	return time.Duration(c.EventTTLMinutes) * time.Minute
}

// StorePath returns the key-value store file path under DataDir.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "wearcast.db")
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Weather.Latitude)
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Weather.Longitude)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".wearcast-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wearcast.yaml"
	}
	return filepath.Join(home, ".config", "wearcast", "config.yaml")
}
