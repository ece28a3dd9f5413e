package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/launchsync/pkg/launchsync/output"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/status"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

var statusCmd = &cobra.Command{
	Use:   "status [server|address...]",
	Short: "Probe login servers",
	Long: `Send a status request to each server's login address over UDP and show
whether it is online, locked, and how many players are connected.

Arguments are registered servers or host[:port] addresses. With no
arguments every registered server is probed. A server that does not answer
within the timeout is reported offline.`,
	RunE: runStatus,
}

var statusServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer status requests locally",
	Long:  `Listen for status requests and answer them with a fixed status. Useful for testing clients without a game server.`,
	Args:  cobra.NoArgs,
	RunE:  runStatusServe,
}

var (
	statusTimeout time.Duration
	statusWatch   bool
	statusEvery   time.Duration

	serveAddr    string
	servePlayers int32
	serveLocked  bool
	serveOffline bool
)

func init() {
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", 0, "probe timeout (default from config)")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep probing a single target")
	statusCmd.Flags().DurationVar(&statusEvery, "interval", 0, "time between probes with --watch (default from config)")

	statusServeCmd.Flags().StringVar(&serveAddr, "addr", fmt.Sprintf("127.0.0.1:%d", status.DefaultPort), "listen address")
	statusServeCmd.Flags().Int32Var(&servePlayers, "players", 0, "player count to report")
	statusServeCmd.Flags().BoolVar(&serveLocked, "locked", false, "report the server as locked")
	statusServeCmd.Flags().BoolVar(&serveOffline, "offline", false, "report the server as offline")

	statusCmd.AddCommand(statusServeCmd)
	rootCmd.AddCommand(statusCmd)
}

// statusTarget is one address to probe.
type statusTarget struct {
	name    string
	address string
}

// resolveStatusTargets maps arguments to addresses. A registered server
// resolves to its login server; anything else is used as an address.
func resolveStatusTargets(store *registry.Store, args []string) ([]statusTarget, error) {
	if len(args) == 0 {
		servers, err := store.List()
		if err != nil {
			return nil, fmt.Errorf("listing servers: %w", err)
		}
		targets := make([]statusTarget, 0, len(servers))
		for _, srv := range servers {
			targets = append(targets, statusTarget{name: srv.Name, address: srv.LoginServer})
		}
		return targets, nil
	}

	targets := make([]statusTarget, 0, len(args))
	for _, arg := range args {
		srv, err := store.Resolve(arg)
		switch {
		case err == nil:
			targets = append(targets, statusTarget{name: srv.Name, address: srv.LoginServer})
		case errors.Is(err, registry.ErrNotFound):
			targets = append(targets, statusTarget{address: arg})
		default:
			return nil, err
		}
	}
	return targets, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, err := openRegistry()
	if err != nil {
		return err
	}
	targets, err := resolveStatusTargets(store, args)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		printInfo("No servers registered.")
		return nil
	}

	timeout := statusTimeout
	if timeout <= 0 {
		timeout = app.cfg.Status.Timeout
	}

	if statusWatch {
		if len(targets) != 1 {
			return errors.New("--watch takes exactly one server or address")
		}
		return watchStatus(cmd.Context(), targets[0], timeout)
	}

	views := probeAll(cmd.Context(), targets, timeout)
	return render(func(f output.Formatter, w *bytes.Buffer) error {
		return f.Statuses(w, views)
	})
}

// probeAll probes every target concurrently and keeps the input order.
func probeAll(ctx context.Context, targets []statusTarget, timeout time.Duration) []output.StatusView {
	views := make([]output.StatusView, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			s, err := status.ProbeDetailed(ctx, t.address, timeout)
			views[i] = output.NewStatusView(t.name, t.address, s, err, time.Now())
			return nil
		})
	}
	_ = g.Wait()
	return views
}

func watchStatus(ctx context.Context, t statusTarget, timeout time.Duration) error {
	m := status.NewMonitor(t.address)
	m.Timeout = timeout
	m.Interval = statusEvery
	if m.Interval <= 0 {
		m.Interval = app.cfg.Status.Interval
	}

	f, err := output.Get(format())
	if err != nil {
		return err
	}

	for u := range m.Run(ctx) {
		var buf bytes.Buffer
		view := output.NewStatusView(t.name, t.address, u.Status, u.Err, u.Time)
		if err := f.Statuses(&buf, []output.StatusView{view}); err != nil {
			return err
		}
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func runStatusServe(cmd *cobra.Command, _ []string) error {
	s := types.ServerStatus{Online: !serveOffline, Locked: serveLocked, Players: servePlayers}

	r, err := status.Listen(cmd.Context(), serveAddr, s)
	if err != nil {
		return err
	}
	defer r.Close()

	printInfo("Answering status requests on %s with %s (Ctrl+C to stop)", r.Addr(), s)
	err = r.Serve(cmd.Context())
	printInfo("Answered %d requests", r.Requests())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
