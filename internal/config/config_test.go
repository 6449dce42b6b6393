package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8600", cfg.Listen)
	assert.Equal(t, 15, cfg.EventTTLMinutes)
	assert.Equal(t, 30, cfg.Weather.CurrentTTLMinutes)
	assert.Equal(t, 3, cfg.Weather.ForecastTTLHours)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \"0.0.0.0:9000\"\ndata_dir: /tmp/wc\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "/tmp/wc", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/wc", "calendars"), cfg.DeviceStorePath)
	assert.Equal(t, 15, cfg.EventTTLMinutes)
	assert.Equal(t, 15*time.Minute, cfg.EventTTL())
	assert.Equal(t, filepath.Join("/tmp/wc", "wearcast.db"), cfg.StorePath())
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Mars/Olympus\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangeCoordinates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weather:\n  latitude: 120\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Berlin"
	cfg.Weather.Latitude = 48.1351
	cfg.Weather.Longitude = 11.582
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loaded.Timezone)
	assert.Equal(t, 48.1351, loaded.Weather.Latitude)
	assert.Equal(t, "Europe/Berlin", loaded.Location().String())
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Local, cfg.Location())
}
