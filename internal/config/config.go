// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for terminal log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser instances. One
// browser process is launched per session, so these apply per session.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	DisableCache    bool     `mapstructure:"disable_cache" yaml:"disable_cache"`
	Args            []string `mapstructure:"args" yaml:"args"`
	ViewportWidth   int64    `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int64    `mapstructure:"viewport_height" yaml:"viewport_height"`

	// LaunchTimeout bounds browser startup and the about:blank readiness probe.
	LaunchTimeout time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	// NavigationTimeout bounds NAVIGATE, including the load condition.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ObserveTimeout bounds OBSERVE waiting for a selector to resolve.
	ObserveTimeout time.Duration `mapstructure:"observe_timeout" yaml:"observe_timeout"`
	// ActionTimeout bounds the remaining primitives (click, type, extract,
	// screenshot, history traversal).
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// PostLoadWait is an extra settle delay after navigation completes.
	PostLoadWait time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
}

// SessionConfig tunes the session registry.
type SessionConfig struct {
	// ActionsPerSecond paces action execution per session. Zero or negative
	// disables pacing.
	ActionsPerSecond float64 `mapstructure:"actions_per_second" yaml:"actions_per_second"`
	ActionBurst      int     `mapstructure:"action_burst" yaml:"action_burst"`
	// ShutdownTimeout bounds the teardown of all live sessions at exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HistoryConfig configures the optional PostgreSQL action-history recorder.
// An empty URL disables recording entirely.
type HistoryConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SetDefaults registers the default value for every key on the given viper
// instance. Called before the config file and environment are read so that
// partial configs merge cleanly.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "pagepilot")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.launch_timeout", 30*time.Second)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.observe_timeout", 30*time.Second)
	v.SetDefault("browser.action_timeout", 30*time.Second)
	v.SetDefault("browser.post_load_wait", 0)

	v.SetDefault("session.actions_per_second", 0)
	v.SetDefault("session.action_burst", 1)
	v.SetDefault("session.shutdown_timeout", 30*time.Second)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the runtime cannot honor.
func (c *Config) Validate() error {
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be positive, got %s", c.Browser.LaunchTimeout)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive, got %s", c.Browser.NavigationTimeout)
	}
	if c.Browser.ObserveTimeout <= 0 {
		return fmt.Errorf("browser.observe_timeout must be positive, got %s", c.Browser.ObserveTimeout)
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be positive, got %s", c.Browser.ActionTimeout)
	}
	if c.Browser.PostLoadWait < 0 {
		return fmt.Errorf("browser.post_load_wait must not be negative, got %s", c.Browser.PostLoadWait)
	}
	if c.Session.ActionsPerSecond > 0 && c.Session.ActionBurst < 1 {
		return fmt.Errorf("session.action_burst must be at least 1 when pacing is enabled, got %d", c.Session.ActionBurst)
	}
	if c.Session.ShutdownTimeout <= 0 {
		return fmt.Errorf("session.shutdown_timeout must be positive, got %s", c.Session.ShutdownTimeout)
	}
	return nil
}
