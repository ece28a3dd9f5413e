package launcher

import (
	"net/http"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// Phases reported to Sink.Phase.
const (
	PhaseManifest   = "fetching manifest"
	PhaseVerify     = "verifying"
	PhaseDownload   = "downloading"
	PhaseExtraneous = "scanning for extraneous files"
	PhaseDone       = "done"
)

// Sink receives progress from a sync pass. Progress and FileFailed may be
// called from several goroutines at once.
type Sink interface {
	Phase(name string)
	Progress(completed, total int)
	FileFailed(file types.PendingFile, err error)
}

// NopSink discards all progress.
type NopSink struct{}

func (NopSink) Phase(string)                        {}
func (NopSink) Progress(int, int)                   {}
func (NopSink) FileFailed(types.PendingFile, error) {}

// Options configures a Launcher.
type Options struct {
	// Workers is the number of concurrent downloads. Zero uses the download default.
	Workers int

	// HTTPClient is used for manifests and files. Nil builds a logging client.
	HTTPClient *http.Client

	// UserAgent is sent with every request.
	UserAgent string

	// ManifestTimeout bounds manifest requests when HTTPClient is nil.
	ManifestTimeout time.Duration

	// Journal records every pass. Nil disables history.
	Journal *history.Journal

	// Registry persists LastSync after a successful pass. Nil skips it.
	Registry *registry.Store

	// Extraneous lists local files the manifest does not name.
	Extraneous bool

	// Sink receives progress. Nil uses NopSink.
	Sink Sink
}

// Validate applies defaults.
func (o *Options) Validate() error {
	if o.Sink == nil {
		o.Sink = NopSink{}
	}
	return nil
}
