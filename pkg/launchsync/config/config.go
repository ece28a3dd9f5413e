package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// DownloadConfig configures the download workers.
type DownloadConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// HTTPConfig configures manifest and file requests.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// StatusConfig configures server status probes.
type StatusConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// PathsConfig holds storage locations. Empty values use the XDG defaults.
type PathsConfig struct {
	// Servers holds one save directory per registered server.
	Servers  string `mapstructure:"servers" yaml:"servers"`
	Registry string `mapstructure:"registry" yaml:"registry"`
	History  string `mapstructure:"history" yaml:"history"`
}

// HistoryConfig configures the sync journal.
type HistoryConfig struct {
	Enabled       bool `mapstructure:"enabled" yaml:"enabled"`
	RetentionDays int  `mapstructure:"retention_days" yaml:"retention_days"`
}

// Config is the application configuration.
type Config struct {
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Status   StatusConfig   `mapstructure:"status" yaml:"status"`
	Paths    PathsConfig    `mapstructure:"paths" yaml:"paths"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// Load reads the configuration from the default locations:
//   - $XDG_CONFIG_HOME/launchsync/config.yaml
//   - $HOME/.config/launchsync/config.yaml
//
// A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads the configuration from path, or from the default
// locations when path is empty. Environment variables override file values.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
			v.AddConfigPath(filepath.Join(dir, appName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.workers", DefaultWorkers)
	v.SetDefault("http.timeout", DefaultHTTPTimeout)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("status.timeout", DefaultStatusTimeout)
	v.SetDefault("status.interval", DefaultStatusInterval)
	v.SetDefault("paths.servers", "")
	v.SetDefault("paths.registry", "")
	v.SetDefault("paths.history", "")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 14)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// resolvePaths fills empty paths with defaults and expands ~.
func (c *Config) resolvePaths() error {
	defaults := []struct {
		field *string
		def   string
	}{
		{&c.Paths.Servers, DefaultServersDir()},
		{&c.Paths.Registry, DefaultRegistryDir()},
		{&c.Paths.History, DefaultHistoryDir()},
		{&c.Logging.Path, logging.DefaultLogPath()},
	}
	for _, d := range defaults {
		if *d.field == "" {
			*d.field = d.def
			continue
		}
		expanded, err := ExpandPath(*d.field)
		if err != nil {
			return err
		}
		*d.field = expanded
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Download.Workers < 1 || c.Download.Workers > 64:
		return fmt.Errorf("download.workers must be between 1 and 64, got %d", c.Download.Workers)
	case c.HTTP.Timeout < 0:
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	case c.Status.Timeout <= 0:
		return fmt.Errorf("status.timeout must be positive, got %s", c.Status.Timeout)
	case c.Status.Interval < time.Second:
		return fmt.Errorf("status.interval must be at least 1s, got %s", c.Status.Interval)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := c.Logging.Rotation.toLogging(); err != nil {
		return err
	}
	return nil
}

func (r RotationConfig) toLogging() (logging.RotationConfig, error) {
	out := logging.RotationConfig{
		MaxAge:     r.MaxAge,
		MaxBackups: r.MaxBackups,
		Daily:      r.Daily,
	}
	if r.MaxSize != "" {
		n, err := humanize.ParseBytes(r.MaxSize)
		if err != nil {
			return out, fmt.Errorf("logging.rotation.max_size: %w", err)
		}
		out.MaxSize = int64(n)
	}
	return out, nil
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() logging.Config {
	rot, err := c.Logging.Rotation.toLogging()
	if err != nil {
		rot = logging.DefaultRotationConfig()
	}
	return logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Rotation:   rot,
		Components: c.Logging.Components,
	}
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// ConfigDir returns the directory the default config file lives in.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// DataDir returns $XDG_DATA_HOME/launchsync.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/launchsync.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// DefaultServersDir returns the default parent of server save directories.
func DefaultServersDir() string {
	return filepath.Join(DataDir(), "Servers")
}

// DefaultRegistryDir returns the default badger directory of the server registry.
func DefaultRegistryDir() string {
	return filepath.Join(DataDir(), "registry")
}

// DefaultHistoryDir returns the default sync journal directory.
func DefaultHistoryDir() string {
	return filepath.Join(StateDir(), "history")
}
