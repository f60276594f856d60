// Package config loads desktop-ax settings from an optional config file and
// DESKTOP_AX_* environment variables, and watches the file for edits.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mj1618/desktop-ax/internal/platform"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DESKTOP_AX_WATCH_RATE=5.
const EnvPrefix = "DESKTOP_AX"

// Config holds application configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Output OutputConfig `mapstructure:"output"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Serve  ServeConfig  `mapstructure:"serve"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OutputConfig holds command output settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Pretty bool   `mapstructure:"pretty"`
}

// WatchConfig holds notification streaming settings.
type WatchConfig struct {
	// Notifications lists the kinds to observe, as AX names or short aliases.
	Notifications []string `mapstructure:"notifications"`
	// Rate caps events per second for each (kind, element) pair of the
	// high-frequency kinds. 0 means unlimited.
	Rate  float64 `mapstructure:"rate"`
	Burst int     `mapstructure:"burst"`
	// Buffer is the number of events an MCP watch session keeps between polls.
	Buffer int `mapstructure:"buffer"`
}

// ServeConfig holds MCP server settings.
type ServeConfig struct {
	Transport string `mapstructure:"transport"`
	Port      int    `mapstructure:"port"`
}

// DefaultNotifications is the watch set used when none is configured.
var DefaultNotifications = []string{"created", "destroyed", "moved", "resized", "minimized", "deminimized", "title", "focused"}

// Load reads configuration from path, or from the default location when path
// is empty. A missing default file is not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "warn")
	v.SetDefault("output.format", "yaml")
	v.SetDefault("output.pretty", false)
	v.SetDefault("watch.notifications", DefaultNotifications)
	v.SetDefault("watch.rate", 0)
	v.SetDefault("watch.burst", 1)
	v.SetDefault("watch.buffer", 256)
	v.SetDefault("serve.transport", "stdio")
	v.SetDefault("serve.port", 8080)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.File = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// DefaultDir is where Load looks for config.{yaml,toml,json} when no path is
// given.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "desktop-ax")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "desktop-ax")
}

// Validate checks values that viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "yaml", "json":
	default:
		return fmt.Errorf("invalid output.format %q (use yaml or json)", c.Output.Format)
	}
	switch c.Serve.Transport {
	case "stdio", "streamable-http":
	default:
		return fmt.Errorf("invalid serve.transport %q (use stdio or streamable-http)", c.Serve.Transport)
	}
	if _, err := c.Notifications(); err != nil {
		return fmt.Errorf("invalid watch.notifications: %w", err)
	}
	if c.Watch.Rate < 0 {
		return fmt.Errorf("invalid watch.rate %v: must not be negative", c.Watch.Rate)
	}
	if c.Watch.Burst < 1 {
		return fmt.Errorf("invalid watch.burst %d: must be at least 1", c.Watch.Burst)
	}
	if c.Watch.Buffer < 1 {
		return fmt.Errorf("invalid watch.buffer %d: must be at least 1", c.Watch.Buffer)
	}
	return nil
}

// Notifications parses the configured watch set.
func (c *Config) Notifications() ([]platform.Notification, error) {
	return platform.ParseNotifications(c.Watch.Notifications)
}
