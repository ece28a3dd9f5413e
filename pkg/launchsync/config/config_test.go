package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and XDG_CONFIG_HOME at temp dirs so no user config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	return home
}

func writeConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".config", appName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Download.Workers != DefaultWorkers {
		t.Errorf("Download.Workers = %d, want %d", cfg.Download.Workers, DefaultWorkers)
	}
	if cfg.HTTP.Timeout != DefaultHTTPTimeout {
		t.Errorf("HTTP.Timeout = %v, want %v", cfg.HTTP.Timeout, DefaultHTTPTimeout)
	}
	if cfg.HTTP.UserAgent != DefaultUserAgent {
		t.Errorf("HTTP.UserAgent = %q, want %q", cfg.HTTP.UserAgent, DefaultUserAgent)
	}
	if cfg.Status.Timeout != DefaultStatusTimeout {
		t.Errorf("Status.Timeout = %v, want %v", cfg.Status.Timeout, DefaultStatusTimeout)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}

	assert.Equal(t, DefaultServersDir(), cfg.Paths.Servers)
	assert.Equal(t, DefaultRegistryDir(), cfg.Paths.Registry)
	assert.Equal(t, DefaultHistoryDir(), cfg.Paths.History)
	assert.NotEmpty(t, cfg.Logging.Path)
}

func TestLoad_File(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, `
download:
  workers: 8
http:
  timeout: 10s
status:
  interval: 1m
paths:
  servers: ~/games/servers
logging:
  level: debug
  components:
    download: warn
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Download.Workers)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, time.Minute, cfg.Status.Interval)
	assert.Equal(t, filepath.Join(home, "games", "servers"), cfg.Paths.Servers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.Components["download"])
	assert.True(t, strings.HasSuffix(cfg.File, "config.yaml"))
}

func TestLoad_EnvOverride(t *testing.T) {
	home := isolate(t)
	writeConfig(t, home, "download:\n  workers: 8\n")
	t.Setenv("LAUNCHSYNC_DOWNLOAD_WORKERS", "2")
	t.Setenv("LAUNCHSYNC_LOGGING_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Download.Workers)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  retention_days: 7\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.History.RetentionDays)
	assert.Equal(t, path, cfg.File)
}

func TestLoadFile_MissingExplicitPath(t *testing.T) {
	isolate(t)
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero workers", "download:\n  workers: 0\n"},
		{"too many workers", "download:\n  workers: 65\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad max size", "logging:\n  rotation:\n    max_size: lots\n"},
		{"short interval", "status:\n  interval: 10ms\n"},
		{"malformed yaml", "download: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			writeConfig(t, home, tt.content)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_LoggingConfig(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{
		Level: "warn",
		Path:  "/tmp/x.log",
		Rotation: RotationConfig{
			MaxSize:    "5MB",
			MaxAge:     3,
			MaxBackups: 2,
			Daily:      false,
		},
		Components: map[string]string{"status": "debug"},
	}}

	lc := cfg.LoggingConfig()
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "/tmp/x.log", lc.Path)
	assert.Equal(t, int64(5_000_000), lc.Rotation.MaxSize)
	assert.Equal(t, 3, lc.Rotation.MaxAge)
	assert.Equal(t, 2, lc.Rotation.MaxBackups)
	assert.False(t, lc.Rotation.Daily)
	assert.Equal(t, "debug", lc.Components["status"])
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/a/b", filepath.Join(home, "a", "b")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"~user/x", "~user/x"},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, created, err := WriteDefault()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, filepath.Join(home, ".config", appName, "config.yaml"), path)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Download.Workers)
	assert.Equal(t, DefaultStatusInterval, cfg.Status.Interval)

	_, created, err = WriteDefault()
	require.NoError(t, err)
	assert.False(t, created)
}

func TestConfigDir_XDG(t *testing.T) {
	xdgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdgDir, appName), dir)
}
