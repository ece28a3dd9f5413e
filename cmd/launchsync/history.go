package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
)

var historyCmd = &cobra.Command{
	Use:   "history [server]",
	Short: "View past sync and verify passes",
	Long:  `List recorded passes, newest first. With a server argument only that server's passes are shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one pass, including failed files",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove entries older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show (0 for all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// journal opens the history journal even when recording is disabled, so
// past entries stay readable.
func journal() (*history.Journal, error) {
	j, err := history.New(app.cfg.Paths.History)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return j, nil
}

func runHistory(_ *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}

	serverID := ""
	if len(args) == 1 {
		srv, err := resolveServer(args[0])
		if err != nil {
			return err
		}
		serverID = srv.ID.String()
	}

	entries, err := j.List(serverID, historyLimit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	views := make([]output.HistoryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, output.NewHistoryView(e))
	}
	return render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.History(w, views)
	})
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	j, err := journal()
	if err != nil {
		return err
	}
	e, err := j.Get(args[0])
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no history entry %q", args[0])
		}
		return err
	}

	view := output.NewHistoryView(*e)
	if format() == "pretty" || format() == "plain" {
		// Full detail is only available in the structured formats.
		outputFormat = "yaml"
		jsonOutput = false
	}
	return render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.History(w, []output.HistoryView{view})
	})
}

func runHistoryClean(_ *cobra.Command, _ []string) error {
	j, err := journal()
	if err != nil {
		return err
	}
	days := app.cfg.History.RetentionDays
	if days <= 0 {
		printInfo("Retention is disabled; nothing removed.")
		return nil
	}

	n, err := j.Cleanup(days)
	if err != nil {
		return fmt.Errorf("cleaning history: %w", err)
	}
	printInfo("Removed %d entries older than %d days.", n, days)
	return nil
}
