package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/launchsync/pkg/launchsync/config"
	"github.com/jamesainslie/launchsync/pkg/launchsync/fetch"
	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
)

// app holds what commands share for one invocation.
var app struct {
	cfg   *config.Config
	store *registry.Store
}

// initializeApp loads the configuration, creates the XDG directories and
// starts logging. It runs before every command.
func initializeApp(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return err
	}
	app.cfg = cfg

	if err := ensureDirectories(cfg); err != nil {
		return err
	}
	return logging.Init(loggingConfig(cfg, false))
}

// ensureDirectories creates the data and state directories.
func ensureDirectories(cfg *config.Config) error {
	for _, dir := range []string{config.DataDir(), config.StateDir(), cfg.Paths.Servers} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// loggingConfig derives the logging setup from the config and flags.
func loggingConfig(cfg *config.Config, tuiMode bool) logging.Config {
	lc := cfg.LoggingConfig()
	lc.TUIMode = tuiMode
	if verbose && !tuiMode {
		lc.Level = "debug"
		lc.ConsoleLevel = "debug"
	}
	return lc
}

// initTUILogging restarts logging with console output off and the entry
// buffer on, for the progress view.
func initTUILogging() error {
	return logging.Init(loggingConfig(app.cfg, true))
}

// openRegistry opens the server registry once per invocation.
func openRegistry() (*registry.Store, error) {
	if app.store != nil {
		return app.store, nil
	}
	store, err := registry.Open(app.cfg.Paths.Registry)
	if err != nil {
		return nil, fmt.Errorf("opening server registry: %w", err)
	}
	app.store = store
	return store, nil
}

// openJournal returns the history journal, or nil when history is disabled.
func openJournal() (*history.Journal, error) {
	if !app.cfg.History.Enabled {
		return nil, nil
	}
	j, err := history.New(app.cfg.Paths.History)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return j, nil
}

// newFetcher builds a manifest client from the HTTP settings.
func newFetcher() (*fetch.Client, error) {
	return fetch.New(fetch.Options{
		UserAgent: app.cfg.HTTP.UserAgent,
		Timeout:   app.cfg.HTTP.Timeout,
	})
}

// newLauncher builds a launcher wired to the registry and journal.
func newLauncher(workers int, extraneous bool, sink launcher.Sink) (*launcher.Launcher, error) {
	store, err := openRegistry()
	if err != nil {
		return nil, err
	}
	journal, err := openJournal()
	if err != nil {
		return nil, err
	}
	if workers == 0 {
		workers = app.cfg.Download.Workers
	}
	return launcher.New(launcher.Options{
		Workers:         workers,
		UserAgent:       app.cfg.HTTP.UserAgent,
		ManifestTimeout: app.cfg.HTTP.Timeout,
		Journal:         journal,
		Registry:        store,
		Extraneous:      extraneous,
		Sink:            sink,
	})
}

// resolveServer opens the registry and resolves ref to a server.
func resolveServer(ref string) (*registry.Server, error) {
	store, err := openRegistry()
	if err != nil {
		return nil, err
	}
	return store.Resolve(ref)
}

// render formats with the selected formatter and writes to stdout.
func render(fn func(f output.Formatter, w *bytes.Buffer) error) error {
	f, err := output.Get(format())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := fn(f, &buf); err != nil {
		return err
	}
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

// isTerminal reports whether stdout is a terminal, including Cygwin and
// MSYS terminals on Windows.
func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// closeApp releases the registry and flushes logs.
func closeApp() {
	if app.store != nil {
		_ = app.store.Close()
		app.store = nil
	}
	_ = logging.Close()
}
