package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rillwm/rill/internal/bytesize"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 4*bytesize.KiB, cfg.Limits.MaxMessageSize)
	assert.Equal(t, 64*bytesize.KiB, cfg.Limits.WriteBufferThreshold)
	assert.Equal(t, bytesize.MiB, cfg.Limits.WriteBufferLimit)
	assert.Equal(t, 32, cfg.Limits.MaxQueuedFds)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: DEBUG
  format: json
socket:
  name: wayland-7
limits:
  max_clients: 16
  write_buffer_threshold: 32Ki
metrics:
  enabled: true
  listen_address: 127.0.0.1:9999
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "wayland-7", cfg.Socket.Name)
	assert.Equal(t, 16, cfg.Limits.MaxClients)
	assert.Equal(t, 32*bytesize.KiB, cfg.Limits.WriteBufferThreshold)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.ListenAddress)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("RILL_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

func TestValidation(t *testing.T) {
	t.Run("BadLevel", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "LOUD"
		assert.Error(t, cfg.Validate())
	})

	t.Run("ThresholdAboveLimit", func(t *testing.T) {
		cfg := Default()
		cfg.Limits.WriteBufferThreshold = 2 * bytesize.MiB
		assert.Error(t, cfg.Validate())
	})

	t.Run("MetricsWithoutAddress", func(t *testing.T) {
		cfg := Default()
		cfg.Metrics.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}

func TestWriteSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteSample(path, false))

	// Refuses to clobber without force.
	assert.Error(t, WriteSample(path, false))
	assert.NoError(t, WriteSample(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
