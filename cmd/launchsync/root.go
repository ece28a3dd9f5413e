package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	outputFormat string
	jsonOutput   bool
	verbose      bool
	quiet        bool

	rootCmd = &cobra.Command{
		Use:   "launchsync",
		Short: "Keep game client files in sync with community servers",
		Long: `launchsync registers game servers, checks whether they are online, and
downloads the client files a server's manifest says are missing or stale.

Examples:
  launchsync server add https://play.example.org   # Register a server
  launchsync server list                           # Show registered servers
  launchsync status                                # Probe every server
  launchsync verify sanctuary                      # Compare local files to the manifest
  launchsync sync sanctuary                        # Download what is missing
  launchsync history                               # Past sync passes`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeApp,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/launchsync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "pretty", "output format: pretty, plain, json, yaml")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "shorthand for --output json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror debug logs to stderr")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError("%v", err)
	}
	closeApp()
	return err
}

// format returns the selected output format name.
func format() string {
	if jsonOutput {
		return "json"
	}
	return outputFormat
}

// printInfo prints a message unless --quiet is set.
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// printProgress writes a progress line to stderr so stdout stays parseable.
func printProgress(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
