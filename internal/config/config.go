// Package config provides typed configuration for codeslot, backed by viper.
// The pool root and all timing knobs are resolved once at process start and
// threaded through as parameters; nothing reads the environment at call sites.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete codeslot configuration.
type Config struct {
	Pool     PoolConfig     `mapstructure:"pool" yaml:"pool"`
	Host     HostConfig     `mapstructure:"host" yaml:"host"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// PoolConfig controls where slots live.
type PoolConfig struct {
	// Root is the directory that holds slot-N directories.
	// Empty means the per-user default under the home directory.
	Root string `mapstructure:"root" yaml:"root"`
}

// HostConfig controls how the external editor is launched and probed.
type HostConfig struct {
	// Command is the editor CLI used to open workspaces and deliver
	// chat instructions (default: "code").
	Command string `mapstructure:"command" yaml:"command"`
	// ReadyTimeoutSec bounds how long the dispatcher waits for the
	// liveness marker after launching the host.
	ReadyTimeoutSec int `mapstructure:"ready_timeout_sec" yaml:"ready_timeout_sec"`
	// ReadyPollIntervalMs is how often the liveness marker is checked.
	ReadyPollIntervalMs int `mapstructure:"ready_poll_interval_ms" yaml:"ready_poll_interval_ms"`
}

// DispatchConfig controls the response wait loop.
type DispatchConfig struct {
	// PollIntervalMs is how often the response artifact is checked in
	// synchronous mode.
	PollIntervalMs int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	// ReadRetries is how many times a present-but-unreadable response
	// file is re-read before giving up.
	ReadRetries int `mapstructure:"read_retries" yaml:"read_retries"`
	// ReadRetryDelayMs is the backoff between read retries.
	ReadRetryDelayMs int `mapstructure:"read_retry_delay_ms" yaml:"read_retry_delay_ms"`
	// Template is an optional workspace template path used for every
	// dispatch and provision; empty means the built-in default.
	Template string `mapstructure:"template" yaml:"template"`
}

// LoggingConfig controls the debug log under the pool root.
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Root: "", // resolved by ResolveRoot
		},
		Host: HostConfig{
			Command:             "code",
			ReadyTimeoutSec:     30,
			ReadyPollIntervalMs: 1000,
		},
		Dispatch: DispatchConfig{
			PollIntervalMs:   2000,
			ReadRetries:      5,
			ReadRetryDelayMs: 200,
			Template:         "",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// ReadyTimeout returns the host readiness timeout as a time.Duration.
func (h *HostConfig) ReadyTimeout() time.Duration {
	return time.Duration(h.ReadyTimeoutSec) * time.Second
}

// ReadyPollInterval returns the liveness poll interval as a time.Duration.
func (h *HostConfig) ReadyPollInterval() time.Duration {
	return time.Duration(h.ReadyPollIntervalMs) * time.Millisecond
}

// PollInterval returns the response poll interval as a time.Duration.
func (d *DispatchConfig) PollInterval() time.Duration {
	return time.Duration(d.PollIntervalMs) * time.Millisecond
}

// ReadRetryDelay returns the read-retry backoff as a time.Duration.
func (d *DispatchConfig) ReadRetryDelay() time.Duration {
	return time.Duration(d.ReadRetryDelayMs) * time.Millisecond
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("pool.root", defaults.Pool.Root)
	viper.SetDefault("host.command", defaults.Host.Command)
	viper.SetDefault("host.ready_timeout_sec", defaults.Host.ReadyTimeoutSec)
	viper.SetDefault("host.ready_poll_interval_ms", defaults.Host.ReadyPollIntervalMs)
	viper.SetDefault("dispatch.poll_interval_ms", defaults.Dispatch.PollIntervalMs)
	viper.SetDefault("dispatch.read_retries", defaults.Dispatch.ReadRetries)
	viper.SetDefault("dispatch.read_retry_delay_ms", defaults.Dispatch.ReadRetryDelayMs)
	viper.SetDefault("dispatch.template", defaults.Dispatch.Template)
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and resolves
// the pool root.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Pool.Root = ResolveRoot(cfg.Pool.Root)
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if the
// config file cannot be unmarshaled.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.Pool.Root = ResolveRoot("")
	}
	return cfg
}

// ResolveRoot resolves the pool root exactly once. An explicit value wins;
// otherwise the per-user default ~/.codeslot/slots is used. A relative value
// is made absolute against the working directory so later chdirs cannot
// change which pool is addressed.
func ResolveRoot(root string) string {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".codeslot", "slots")
		}
		return filepath.Join(home, ".codeslot", "slots")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return root
	}
	return abs
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codeslot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codeslot"
	}
	return filepath.Join(home, ".config", "codeslot")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// WriteDefault writes a config file with all default values to the given
// path, creating parent directories as needed. It refuses to overwrite an
// existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
