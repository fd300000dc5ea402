package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/proximity-agent/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv(EnvMQTTPassword, "from-env")
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
  password: from-file
services:
  feed:
    enabled: true
    topic: reports/snapshot
  notifications:
    topic: alerts/notifications
  location_service:
    enabled: true
    static_position:
      latitude: 40.7128
      longitude: -74.006
`)

	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.MQTT.Password)
	assert.Equal(t, "proximity-agent", cfg.MQTT.ClientID)
	assert.True(t, *cfg.Pipeline.SuppressInitialSnapshot)
	assert.Equal(t, ProviderStatic, cfg.Services.Location.Provider)
	assert.Equal(t, 30*time.Second, cfg.Services.Location.Interval)
	assert.Equal(t, 40.7128, cfg.Services.Location.StaticPosition.Latitude)
	assert.Equal(t, "^1.0.0", cfg.Services.Feed.SchemaVersion)
}

func TestLoadConfig_ExplicitSuppressionOff(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
pipeline:
  suppress_initial_snapshot: false
services:
  notifications:
    dry_run: true
`)

	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)
	assert.False(t, *cfg.Pipeline.SuppressInitialSnapshot)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `
services:
  feed:
    enabled: true
  location_service:
    enabled: true
    provider: google
`)

	_, err := LoadConfig(path, file.NewFileService())
	require.Error(t, err)
	assert.ErrorContains(t, err, "mqtt.broker is required")
	assert.ErrorContains(t, err, "services.feed.topic is required")
	assert.ErrorContains(t, err, "maps_api_key is required")
	assert.ErrorContains(t, err, "services.notifications.topic is required")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), file.NewFileService())
	assert.Error(t, err)
}
