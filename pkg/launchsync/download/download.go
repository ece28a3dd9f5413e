package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
	"github.com/jamesainslie/launchsync/pkg/launchsync/verify"
)

// Orchestrator downloads batches of pending files. One Orchestrator may run
// several batches; each Sync call keeps its own counters.
type Orchestrator struct {
	opts Options
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Orchestrator{opts: opts}, nil
}

// Workers returns the configured worker count.
func (o *Orchestrator) Workers() int {
	return o.opts.Workers
}

// batch is the shared state of one Sync call.
type batch struct {
	total     int
	completed atomic.Int64
	bytes     atomic.Int64

	mu     sync.Mutex
	failed []types.FailedFile
}

// Sync fetches every file from {serverURL}/client/... into clientRoot and
// returns once all of them have finished. A file that fails is recorded and
// the batch continues. When ctx is canceled, requests in flight are aborted
// and files not yet started are recorded as canceled, so Succeeded is
// always Total minus the number of failures.
func (o *Orchestrator) Sync(ctx context.Context, files []types.PendingFile, serverURL, clientRoot string) types.SyncResult {
	start := time.Now()
	log := logging.Get("download")
	b := &batch{total: len(files)}

	log.Info("sync started", "server", serverURL, "files", len(files), "workers", o.opts.Workers)

	queue := make(chan types.PendingFile)
	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)
		for i, f := range files {
			if ctx.Err() != nil {
				o.cancelRest(b, files[i:], ctx.Err())
				return nil
			}
			select {
			case queue <- f:
			case <-ctx.Done():
				o.cancelRest(b, files[i:], ctx.Err())
				return nil
			}
		}
		return nil
	})

	for w := 0; w < o.opts.Workers; w++ {
		g.Go(func() error {
			for f := range queue {
				n, err := o.fetchFile(ctx, f, serverURL, clientRoot)
				o.finish(b, f, n, err)
			}
			return nil
		})
	}

	// Workers never return errors; failures are collected per file.
	_ = g.Wait()

	types.SortFailed(b.failed)
	result := types.SyncResult{
		Total:     b.total,
		Succeeded: b.total - len(b.failed),
		Failed:    b.failed,
		Bytes:     b.bytes.Load(),
		Elapsed:   time.Since(start),
	}

	log.Info("sync finished",
		"succeeded", result.Succeeded, "failed", len(result.Failed),
		"bytes", types.FormatSize(result.Bytes), "elapsed", result.Elapsed.Round(time.Millisecond))
	return result
}

// cancelRest records files that were never handed to a worker.
func (o *Orchestrator) cancelRest(b *batch, files []types.PendingFile, cause error) {
	for _, f := range files {
		o.finish(b, f, 0, types.NewError(types.KindCanceled, "download", f.RelPath(), cause))
	}
}

// finish records the outcome of one file and reports progress.
func (o *Orchestrator) finish(b *batch, f types.PendingFile, n int64, err error) {
	if err != nil {
		b.mu.Lock()
		b.failed = append(b.failed, types.FailedFile{File: f, Err: err})
		b.mu.Unlock()

		if types.KindOf(err) != types.KindCanceled {
			logging.Get("download").Warn("file failed", "file", f.RelPath(), "error", err)
		}
		if o.opts.OnFileFailed != nil {
			o.opts.OnFileFailed(f, err)
		}
	} else {
		b.bytes.Add(n)
	}

	done := b.completed.Add(1)
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(int(done), b.total)
	}
}

// fetchFile downloads one file. The destination is created or truncated
// before the body is streamed into it, so an interrupted transfer leaves a
// partial file behind; the next verification pass picks it up again.
func (o *Orchestrator) fetchFile(ctx context.Context, f types.PendingFile, serverURL, clientRoot string) (int64, error) {
	const op = "download"
	if err := ctx.Err(); err != nil {
		return 0, types.NewError(types.KindCanceled, op, f.RelPath(), err)
	}
	dest, err := verify.LocalPath(clientRoot, f)
	if err != nil {
		return 0, err
	}
	src := FileURL(serverURL, f)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, types.NewError(types.KindFileSystem, op, dest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, types.NewError(types.KindNetwork, op, src, err)
	}
	req.Header.Set("User-Agent", o.opts.UserAgent)

	resp, err := o.opts.HTTPClient.Do(req)
	if err != nil {
		return 0, types.NewError(networkKind(err), op, src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, types.NewError(types.KindNetwork, op, src, fmt.Errorf("%w: %s", types.ErrHTTPStatus, resp.Status))
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, types.NewError(types.KindFileSystem, op, dest, err)
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		var pathErr *fs.PathError
		if errors.As(copyErr, &pathErr) {
			return n, types.NewError(types.KindFileSystem, op, dest, copyErr)
		}
		return n, types.NewError(networkKind(copyErr), op, src, copyErr)
	case closeErr != nil:
		return n, types.NewError(types.KindFileSystem, op, dest, closeErr)
	}
	return n, nil
}

// networkKind classifies a transport error, keeping cancellation apart.
func networkKind(err error) types.Kind {
	if errors.Is(err, context.Canceled) {
		return types.KindCanceled
	}
	return types.KindNetwork
}

// FileURL returns {serverURL}/client/{folder}/{name}. The folder is omitted
// when empty and every segment is path-escaped.
func FileURL(serverURL string, f types.PendingFile) string {
	segs := f.Segments()
	escaped := make([]string, len(segs))
	for i, s := range segs {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(serverURL, "/") + "/client/" + strings.Join(escaped, "/")
}
