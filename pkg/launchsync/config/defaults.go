// Package config loads launchsync settings from a YAML file and
// LAUNCHSYNC_* environment variables.
package config

import "time"

// Defaults.
const (
	// DefaultWorkers is the number of concurrent file downloads.
	DefaultWorkers = 4

	// DefaultHTTPTimeout bounds a manifest request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every HTTP request.
	DefaultUserAgent = "launchsync"

	// DefaultStatusTimeout bounds a status probe.
	DefaultStatusTimeout = 5 * time.Second

	// DefaultStatusInterval is the time between probes in watch mode.
	DefaultStatusInterval = 30 * time.Second

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 90

	// EnvPrefix prefixes environment overrides, e.g. LAUNCHSYNC_DOWNLOAD_WORKERS.
	EnvPrefix = "LAUNCHSYNC"

	appName = "launchsync"
)
