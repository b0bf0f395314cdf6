// Package config loads and validates the rill configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (RILL_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rillwm/rill/internal/bytesize"
)

// Config is the static configuration of the compositor. Everything else
// (globals, clients, sessions) is runtime state.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Socket controls the rendezvous socket placement
	Socket SocketConfig `mapstructure:"socket" yaml:"socket"`

	// Limits bounds per-client resource use
	Limits LimitsConfig `mapstructure:"limits" yaml:"limits"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format selects text or json output
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// SocketConfig controls where the display socket lives.
type SocketConfig struct {
	// RuntimeDir overrides XDG_RUNTIME_DIR; empty uses the environment.
	RuntimeDir string `mapstructure:"runtime_dir" yaml:"runtime_dir"`

	// Name pins the display name instead of probing wayland-N.
	Name string `mapstructure:"name" yaml:"name"`
}

// LimitsConfig bounds per-client resources.
type LimitsConfig struct {
	// MaxClients limits concurrent sessions; 0 is unlimited.
	MaxClients int `mapstructure:"max_clients" validate:"min=0" yaml:"max_clients"`

	// MaxMessageSize bounds one framed request.
	MaxMessageSize bytesize.ByteSize `mapstructure:"max_message_size" yaml:"max_message_size"`

	// WriteBufferThreshold marks a client slow once its event backlog
	// passes this size.
	WriteBufferThreshold bytesize.ByteSize `mapstructure:"write_buffer_threshold" yaml:"write_buffer_threshold"`

	// WriteBufferLimit disconnects a client whose backlog passes this
	// hard cap.
	WriteBufferLimit bytesize.ByteSize `mapstructure:"write_buffer_limit" yaml:"write_buffer_limit"`

	// MaxQueuedFds bounds the per-client ancillary descriptor queue.
	MaxQueuedFds int `mapstructure:"max_queued_fds" validate:"min=1" yaml:"max_queued_fds"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns metric collection and the HTTP endpoint on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddress is the host:port the endpoint binds.
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "rill", "config.yaml")
}

// Load reads the configuration from path (or the default location when
// empty), applies RILL_* environment overrides and defaults, and
// validates the result. A missing file is not an error; the defaults
// serve.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else if def := DefaultPath(); def != "" {
		v.SetConfigFile(def)
	}

	v.SetEnvPrefix("RILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key must be known to viper for environment overrides to
	// surface through AllSettings.
	setViperDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for production use.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Limits.WriteBufferThreshold >= c.Limits.WriteBufferLimit {
		return fmt.Errorf("write_buffer_threshold %s must be below write_buffer_limit %s",
			c.Limits.WriteBufferThreshold, c.Limits.WriteBufferLimit)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics enabled without listen_address")
	}
	return nil
}
