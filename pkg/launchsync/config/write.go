package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigTemplate = `# launchsync configuration

download:
  # Files fetched at once.
  workers: %d

http:
  # Limit for manifest requests. File downloads are not limited.
  timeout: %s
  user_agent: %s

status:
  timeout: %s
  # Time between probes for "status --watch".
  interval: %s

# Empty paths use the XDG data and state directories.
paths:
  servers: ""
  registry: ""
  history: ""

history:
  enabled: true
  retention_days: %d

logging:
  # debug, info, warn, error
  level: info
  # Empty means $XDG_STATE_HOME/launchsync/launchsync.log
  path: ""
  rotation:
    max_size: 10MB
    max_age: 14
    max_backups: 5
    daily: true
  # Per-component levels: fetch, verify, download, status, registry, launcher
  components: {}
`

// DefaultFilePath returns the default config file path.
func DefaultFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default config file and returns its
// path. An existing file is left alone and reported with created false.
func WriteDefault() (path string, created bool, err error) {
	path, err = DefaultFilePath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("checking config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(defaultConfigTemplate,
		DefaultWorkers, DefaultHTTPTimeout, DefaultUserAgent,
		DefaultStatusTimeout, DefaultStatusInterval, DefaultRetentionDays)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("writing default config: %w", err)
	}
	return path, true, nil
}
