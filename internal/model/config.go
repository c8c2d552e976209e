package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the platform REST API.
type APIConfig struct {
	// BaseURL is the root URL every endpoint path is joined to.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WireRevision selects the notification-type spelling table ("v1" or "v2").
	WireRevision string `mapstructure:"wire_revision" yaml:"wire_revision"`

	// RequestTimeoutSec bounds every single HTTP round trip.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// PollConfig holds settings for the processing loop.
type PollConfig struct {
	// IntervalSec is the fixed sleep between poll cycles.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API  APIConfig  `mapstructure:"api" yaml:"api"`
	Poll PollConfig `mapstructure:"poll" yaml:"poll"`
	Log  LogConfig  `mapstructure:"log" yaml:"log"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSec) * time.Second
}

// PollInterval returns the inter-cycle delay as a duration.
func (c *AppConfig) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notifyagent/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "notifyagent", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:           "https://vrchat.com",
			WireRevision:      string(WireV1),
			RequestTimeoutSec: 30,
			UserAgent:         "notifyagent/1.0",
		},
		Poll: PollConfig{
			IntervalSec: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.wire_revision", def.API.WireRevision)
	v.SetDefault("api.request_timeout_sec", def.API.RequestTimeoutSec)
	v.SetDefault("api.user_agent", def.API.UserAgent)
	v.SetDefault("poll.interval_sec", def.Poll.IntervalSec)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if _, err := ParseWireRevision(c.API.WireRevision); err != nil {
		return err
	}
	if c.API.RequestTimeoutSec <= 0 {
		return fmt.Errorf("api.request_timeout_sec must be positive, got %d", c.API.RequestTimeoutSec)
	}
	if c.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll.interval_sec must be positive, got %d", c.Poll.IntervalSec)
	}
	return nil
}
