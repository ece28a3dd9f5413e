// Package launcher runs sync passes: it fetches a server's client
// manifest, verifies the local copy against it, downloads what is missing
// or stale, and records the pass in the history journal.
package launcher

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/download"
	"github.com/jamesainslie/launchsync/pkg/launchsync/fetch"
	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
	"github.com/jamesainslie/launchsync/pkg/launchsync/verify"
)

// Report is the outcome of one pass over a server.
type Report struct {
	Server   *registry.Server
	Manifest *manifest.ClientManifest

	// Pending lists the files verification found missing or stale.
	Pending []types.PendingFile

	// Result is the download outcome. It is zero for verify-only passes.
	Result types.SyncResult

	// Extraneous lists local files not named by the manifest, when requested.
	Extraneous []string

	// HistoryID is the journal entry of the pass, empty when history is off.
	HistoryID string
}

// UpToDate reports whether the local client matched the manifest after the pass.
func (r *Report) UpToDate() bool {
	if len(r.Pending) == 0 {
		return true
	}
	return r.Result.Total == len(r.Pending) && r.Result.OK()
}

// Launcher runs sync passes. It is safe to reuse across servers but runs
// one pass at a time per call.
type Launcher struct {
	opts    Options
	fetcher *fetch.Client
}

// New creates a Launcher.
func New(opts Options) (*Launcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fetcher, err := fetch.New(fetch.Options{
		HTTPClient: opts.HTTPClient,
		UserAgent:  opts.UserAgent,
		Timeout:    opts.ManifestTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &Launcher{opts: opts, fetcher: fetcher}, nil
}

// Fetcher returns the manifest client, e.g. for registry.Store.Add.
func (l *Launcher) Fetcher() *fetch.Client {
	return l.fetcher
}

// Prepare brings the client files of srv up to date: fetch the client
// manifest, verify {SavePath}/Client against it, and download every
// pending file. Individual file failures are reported in Report.Result;
// an error is returned only when the pass could not run at all.
func (l *Launcher) Prepare(ctx context.Context, srv *registry.Server) (*Report, error) {
	return l.run(ctx, srv, history.OpSync)
}

// Verify compares the local client files of srv against its manifest
// without downloading anything.
func (l *Launcher) Verify(ctx context.Context, srv *registry.Server) (*Report, error) {
	return l.run(ctx, srv, history.OpVerify)
}

func (l *Launcher) run(ctx context.Context, srv *registry.Server, op history.Operation) (*Report, error) {
	log := logging.Get("launcher")
	sink := l.opts.Sink
	start := time.Now()

	entry := &history.Entry{
		Operation:  op,
		ServerID:   srv.ID.String(),
		ServerName: srv.Name,
		ServerURL:  srv.URL,
	}
	report := &Report{Server: srv}

	// Phase 1: client manifest.
	sink.Phase(PhaseManifest)
	m, err := l.fetcher.FetchClientManifest(ctx, srv.URL)
	if err != nil {
		log.Error("client manifest unavailable", "server", srv.Name, "error", err)
		entry.Error = err.Error()
		entry.Summary.ElapsedMS = time.Since(start).Milliseconds()
		l.record(entry, report)
		return nil, fmt.Errorf("fetching client manifest for %s: %w", srv.Name, err)
	}
	report.Manifest = m

	// Phase 2: verification.
	sink.Phase(PhaseVerify)
	root := srv.ClientRoot()
	report.Pending = verify.Collect(m, root)
	log.Info("verification finished", "server", srv.Name, "files", m.FileCount(), "pending", len(report.Pending))

	// Phase 3: downloads.
	if op == history.OpSync && len(report.Pending) > 0 {
		sink.Phase(PhaseDownload)
		orch, err := download.New(download.Options{
			Workers:      l.opts.Workers,
			HTTPClient:   l.opts.HTTPClient,
			UserAgent:    l.opts.UserAgent,
			OnProgress:   sink.Progress,
			OnFileFailed: sink.FileFailed,
		})
		if err != nil {
			return nil, err
		}
		report.Result = orch.Sync(ctx, report.Pending, srv.URL, root)
		entry.RecordResult(report.Result)
	} else {
		entry.Summary.Pending = len(report.Pending)
	}

	if l.opts.Extraneous {
		sink.Phase(PhaseExtraneous)
		extra, err := verify.Extraneous(ctx, m, root)
		if err != nil {
			log.Warn("extraneous scan failed", "server", srv.Name, "error", err)
		}
		report.Extraneous = extra
	}

	entry.Summary.ElapsedMS = time.Since(start).Milliseconds()
	if op == history.OpSync && report.UpToDate() {
		l.touch(srv)
	}
	l.record(entry, report)

	sink.Phase(PhaseDone)
	return report, nil
}

// record writes entry to the journal. Journal failures are logged, not returned.
func (l *Launcher) record(entry *history.Entry, report *Report) {
	if l.opts.Journal == nil {
		return
	}
	if err := l.opts.Journal.Log(entry); err != nil {
		logging.Get("launcher").Warn("recording history failed", "error", err)
		return
	}
	report.HistoryID = entry.ID
}

// touch sets LastSync and persists it.
func (l *Launcher) touch(srv *registry.Server) {
	srv.LastSync = time.Now().UTC()
	if l.opts.Registry == nil {
		return
	}
	if err := l.opts.Registry.Put(srv); err != nil {
		logging.Get("launcher").Warn("updating last sync failed", "server", srv.Name, "error", err)
	}
}

// RefreshServer re-reads the server manifest of srv and stores the
// updated description. The URL and save path never change.
func (l *Launcher) RefreshServer(ctx context.Context, srv *registry.Server) error {
	m, err := l.fetcher.FetchServerManifest(ctx, srv.URL)
	if err != nil {
		return fmt.Errorf("refreshing %s: %w", srv.Name, err)
	}
	registry.ApplyManifest(srv, m)

	if l.opts.Registry != nil {
		if err := l.opts.Registry.Put(srv); err != nil {
			return fmt.Errorf("storing %s: %w", srv.Name, err)
		}
	}
	logging.Get("launcher").Info("server refreshed", "id", srv.ID, "name", srv.Name)
	return nil
}
