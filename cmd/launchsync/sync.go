package main

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/launchsync/cmd/launchsync/tui"
	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync <server>",
	Short: "Download missing and stale client files",
	Long: `Verify the local client files of a server and download every file that is
missing or differs from the manifest. Files are written straight to their
destination; a file interrupted mid-transfer is fetched again next time.

An interactive progress view is shown when stdout is a terminal. Use
--no-interactive or a non-pretty --output for plain progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var (
	syncWorkers       int
	syncNoInteractive bool
	syncExtraneous    bool
)

func init() {
	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 0, "concurrent downloads (default from config)")
	syncCmd.Flags().BoolVarP(&syncNoInteractive, "no-interactive", "n", false, "disable the progress view")
	syncCmd.Flags().BoolVar(&syncExtraneous, "extraneous", false, "list local files the manifest does not name")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	srv, err := resolveServer(args[0])
	if err != nil {
		return err
	}

	var report *launcher.Report
	if interactive() {
		report, err = syncInteractive(cmd.Context(), srv)
	} else {
		report, err = syncPlain(cmd.Context(), srv)
	}
	if err != nil {
		return err
	}

	view := output.NewReportView(string(history.OpSync), report)
	if err := render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.Report(w, view)
	}); err != nil {
		return err
	}
	if !view.UpToDate {
		return fmt.Errorf("%d of %d files could not be downloaded", len(view.Failed), len(view.Pending))
	}
	return nil
}

// interactive reports whether the progress view should be used.
func interactive() bool {
	return !syncNoInteractive && !quiet && format() == "pretty" && isTerminal()
}

func syncInteractive(ctx context.Context, srv *registry.Server) (*launcher.Report, error) {
	if err := initTUILogging(); err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	return tui.Run(ctx, srv.Name, func(ctx context.Context, sink launcher.Sink) (*launcher.Report, error) {
		l, err := newLauncher(syncWorkers, syncExtraneous, sink)
		if err != nil {
			return nil, err
		}
		return l.Prepare(ctx, srv)
	})
}

func syncPlain(ctx context.Context, srv *registry.Server) (*launcher.Report, error) {
	var sink launcher.Sink = launcher.NopSink{}
	if !quiet && format() != "json" && format() != "yaml" {
		sink = &textSink{}
	}
	l, err := newLauncher(syncWorkers, syncExtraneous, sink)
	if err != nil {
		return nil, err
	}
	return l.Prepare(ctx, srv)
}

// textSink prints phases, failures and every tenth of progress to stderr.
type textSink struct {
	mu         sync.Mutex
	lastDecile int
}

func (s *textSink) Phase(name string) {
	printProgress("%s...", name)
}

func (s *textSink) Progress(completed, total int) {
	if total == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	decile := completed * 10 / total
	if decile > s.lastDecile || completed == total {
		s.lastDecile = decile
		printProgress("  %d/%d files", completed, total)
	}
}

func (s *textSink) FileFailed(f types.PendingFile, err error) {
	if types.KindOf(err) == types.KindCanceled {
		return
	}
	printProgress("  failed: %s: %v", f.RelPath(), err)
}
