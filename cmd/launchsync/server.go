package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/trash"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"servers"},
	Short:   "Manage registered servers",
	Long: `Manage the game servers launchsync knows about.

A server is identified by its ID, a unique ID prefix, or its name.`,
}

var serverAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Register a server",
	Long: `Fetch the server manifest at <url>/servermanifest.xml and register the server.

A save directory named after the server is created below the servers
directory; its client files live in the Client subdirectory.`,
	Args: cobra.ExactArgs(1),
	RunE: runServerAdd,
}

var serverListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered servers",
	Args:    cobra.NoArgs,
	RunE:    runServerList,
}

var serverRemoveCmd = &cobra.Command{
	Use:     "remove <server>",
	Aliases: []string{"rm"},
	Short:   "Unregister a server",
	Args:    cobra.ExactArgs(1),
	RunE:    runServerRemove,
}

var serverRefreshCmd = &cobra.Command{
	Use:   "refresh [server...]",
	Short: "Re-read server manifests",
	Long:  `Fetch the server manifest again and update name, description and login details. With no arguments every server is refreshed.`,
	RunE:  runServerRefresh,
}

var (
	deleteFiles bool
	trashFiles  bool
)

func init() {
	serverRemoveCmd.Flags().BoolVar(&deleteFiles, "delete-files", false, "also delete the server's save directory")
	serverRemoveCmd.Flags().BoolVar(&trashFiles, "trash", false, "move the server's save directory to the trash")
	serverRemoveCmd.MarkFlagsMutuallyExclusive("delete-files", "trash")

	serverCmd.AddCommand(serverAddCmd)
	serverCmd.AddCommand(serverListCmd)
	serverCmd.AddCommand(serverRemoveCmd)
	serverCmd.AddCommand(serverRefreshCmd)
	rootCmd.AddCommand(serverCmd)
}

func runServerAdd(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}
	fetcher, err := newFetcher()
	if err != nil {
		return err
	}

	srv, err := store.Add(cmd.Context(), fetcher, app.cfg.Paths.Servers, args[0])
	if err != nil {
		return fmt.Errorf("adding server: %w", err)
	}

	if format() != "pretty" {
		return renderServers([]*registry.Server{srv})
	}
	printInfo("Added %s (%s)", srv.Name, srv.ID)
	printInfo("Client files: %s", srv.ClientRoot())
	printInfo("Run 'launchsync sync %s' to download them.", srv.Name)
	return nil
}

func runServerList(_ *cobra.Command, _ []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}
	servers, err := store.List()
	if err != nil {
		return fmt.Errorf("listing servers: %w", err)
	}
	return renderServers(servers)
}

func renderServers(servers []*registry.Server) error {
	views := make([]output.ServerView, 0, len(servers))
	for _, s := range servers {
		views = append(views, output.NewServerView(s))
	}
	return render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.Servers(w, views)
	})
}

func runServerRemove(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}
	srv, err := store.Resolve(args[0])
	if err != nil {
		return err
	}

	if trashFiles && srv.SavePath != "" {
		outcome, err := trash.Move(cmd.Context(), srv.SavePath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing files of %s: %w", srv.Name, err)
		}
		if err == nil {
			printInfo("Files %s: %s", outcome, srv.SavePath)
		}
	}
	if err := store.Remove(srv, deleteFiles); err != nil {
		return fmt.Errorf("removing %s: %w", srv.Name, err)
	}

	printInfo("Removed %s", srv.Name)
	if !deleteFiles && !trashFiles {
		printInfo("Files kept in %s", srv.SavePath)
	}
	return nil
}

func runServerRefresh(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}

	var servers []*registry.Server
	if len(args) == 0 {
		if servers, err = store.List(); err != nil {
			return fmt.Errorf("listing servers: %w", err)
		}
	} else {
		for _, ref := range args {
			srv, err := store.Resolve(ref)
			if err != nil {
				return err
			}
			servers = append(servers, srv)
		}
	}

	l, err := newLauncher(0, false, nil)
	if err != nil {
		return err
	}

	var failed int
	for _, srv := range servers {
		if err := l.RefreshServer(cmd.Context(), srv); err != nil {
			printError("%v", err)
			failed++
			continue
		}
		printInfo("Refreshed %s", srv.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d servers could not be refreshed", failed, len(servers))
	}
	return nil
}
