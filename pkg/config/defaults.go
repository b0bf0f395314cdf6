package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rillwm/rill/internal/bytesize"
)

// Default limits.
const (
	defaultMaxMessageSize       = 4 * bytesize.KiB
	defaultWriteBufferThreshold = 64 * bytesize.KiB
	defaultWriteBufferLimit     = 1 * bytesize.MiB
	defaultMaxQueuedFds         = 32
)

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Limits.MaxMessageSize == 0 {
		c.Limits.MaxMessageSize = defaultMaxMessageSize
	}
	if c.Limits.WriteBufferThreshold == 0 {
		c.Limits.WriteBufferThreshold = defaultWriteBufferThreshold
	}
	if c.Limits.WriteBufferLimit == 0 {
		c.Limits.WriteBufferLimit = defaultWriteBufferLimit
	}
	if c.Limits.MaxQueuedFds == 0 {
		c.Limits.MaxQueuedFds = defaultMaxQueuedFds
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = "127.0.0.1:9411"
	}
}

// setViperDefaults registers every key so file values, environment
// overrides, and defaults all surface through AllSettings.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "")
	v.SetDefault("socket.runtime_dir", "")
	v.SetDefault("socket.name", "")
	v.SetDefault("limits.max_clients", 0)
	v.SetDefault("limits.max_message_size", uint64(defaultMaxMessageSize))
	v.SetDefault("limits.write_buffer_threshold", uint64(defaultWriteBufferThreshold))
	v.SetDefault("limits.write_buffer_limit", uint64(defaultWriteBufferLimit))
	v.SetDefault("limits.max_queued_fds", defaultMaxQueuedFds)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_address", "")
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// WriteSample writes a commented sample configuration. With force an
// existing file is overwritten.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal sample config: %w", err)
	}

	header := []byte("# rill configuration\n# Every key can be overridden with RILL_<SECTION>_<KEY> environment variables.\n\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
