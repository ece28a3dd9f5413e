// Package download fetches pending client files from a game server with a
// fixed pool of workers, writing each file straight to its destination.
package download

import (
	"fmt"
	"net/http"

	"github.com/jamesainslie/launchsync/pkg/launchsync/fetch"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// DefaultWorkers is the number of files fetched at once.
const DefaultWorkers = 4

// MaxWorkers caps Options.Workers.
const MaxWorkers = 64

// Options configures an Orchestrator.
type Options struct {
	// Workers is the number of concurrent downloads. Zero uses DefaultWorkers.
	Workers int

	// HTTPClient performs the requests. Nil uses fetch.NewHTTPClient with no
	// overall timeout.
	HTTPClient *http.Client

	// UserAgent is sent with every request. Empty uses fetch.DefaultUserAgent.
	UserAgent string

	// OnProgress is called after every file, whether it succeeded or not,
	// with the number of files finished so far. It may be called from any
	// worker goroutine.
	OnProgress func(completed, total int)

	// OnFileFailed is called for every file that could not be fetched. It
	// may be called from any worker goroutine.
	OnFileFailed func(file types.PendingFile, err error)
}

// Validate applies defaults and rejects out-of-range values.
func (o *Options) Validate() error {
	if o.Workers < 0 || o.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.HTTPClient == nil {
		o.HTTPClient = fetch.NewHTTPClient(0)
	}
	if o.UserAgent == "" {
		o.UserAgent = fetch.DefaultUserAgent
	}
	return nil
}
