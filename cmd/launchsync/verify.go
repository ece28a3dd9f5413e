package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <server>",
	Short: "Compare local client files to the server manifest",
	Long: `Fetch the server's client manifest and check every file it lists: a file
is out of date when it is missing, has a different size, or its xxHash64
does not match. Nothing is downloaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

var verifyExtraneous bool

func init() {
	verifyCmd.Flags().BoolVar(&verifyExtraneous, "extraneous", false, "also list local files the manifest does not name")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	srv, err := resolveServer(args[0])
	if err != nil {
		return err
	}

	l, err := newLauncher(0, verifyExtraneous, nil)
	if err != nil {
		return err
	}
	report, err := l.Verify(cmd.Context(), srv)
	if err != nil {
		return err
	}

	view := output.NewReportView(string(history.OpVerify), report)
	if err := render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.Report(w, view)
	}); err != nil {
		return err
	}
	if !view.UpToDate {
		return fmt.Errorf("%d files out of date", len(view.Pending))
	}
	return nil
}
