package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// fileServer serves /client/... with the path as body, failing paths in fail.
type fileServer struct {
	fail     map[string]bool
	inFlight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
}

func (s *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	rel, ok := strings.CutPrefix(r.URL.Path, "/client/")
	if !ok || s.fail[rel] {
		http.Error(w, "nope", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte("content of " + rel))
}

func tenFiles() []types.PendingFile {
	files := make([]types.PendingFile, 10)
	for i := range files {
		files[i] = types.PendingFile{Folder: "Data", Name: fmt.Sprintf("f%02d.bin", i+1)}
	}
	return files
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func TestSync_PartialFailure(t *testing.T) {
	fs := &fileServer{fail: map[string]bool{"Data/f03.bin": true, "Data/f07.bin": true}}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	root := t.TempDir()
	var (
		mu       sync.Mutex
		progress []int
		failed   []string
	)
	o := newOrchestrator(t, Options{
		Workers: 4,
		OnProgress: func(completed, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 10, total)
			progress = append(progress, completed)
		},
		OnFileFailed: func(f types.PendingFile, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, f.RelPath())
		},
	})

	res := o.Sync(context.Background(), tenFiles(), srv.URL, root)

	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 8, res.Succeeded)
	assert.False(t, res.OK())
	assert.Equal(t, []string{"Data/f03.bin", "Data/f07.bin"}, res.FailedNames())
	for _, f := range res.Failed {
		assert.ErrorIs(t, f.Err, types.ErrHTTPStatus)
		assert.Equal(t, types.KindNetwork, types.KindOf(f.Err))
	}

	assert.Len(t, progress, 10)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, progress)
	assert.ElementsMatch(t, []string{"Data/f03.bin", "Data/f07.bin"}, failed)

	data, err := os.ReadFile(filepath.Join(root, "Data", "f01.bin"))
	require.NoError(t, err)
	assert.Equal(t, "content of Data/f01.bin", string(data))
	assert.Equal(t, int64(8*len("content of Data/f01.bin")), res.Bytes)

	_, err = os.Stat(filepath.Join(root, "Data", "f03.bin"))
	assert.True(t, os.IsNotExist(err), "failed file must not be created")
}

func TestSync_ResultIndependentOfWorkers(t *testing.T) {
	fs := &fileServer{fail: map[string]bool{"Data/f02.bin": true, "Data/f09.bin": true, "Data/f10.bin": true}}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	for _, workers := range []int{1, 2, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			o := newOrchestrator(t, Options{Workers: workers})
			res := o.Sync(context.Background(), tenFiles(), srv.URL, t.TempDir())
			assert.Equal(t, 7, res.Succeeded)
			assert.Equal(t, []string{"Data/f02.bin", "Data/f09.bin", "Data/f10.bin"}, res.FailedNames())
		})
	}
}

func TestSync_BoundsConcurrency(t *testing.T) {
	fs := &fileServer{delay: 20 * time.Millisecond}
	srv := httptest.NewServer(fs)
	defer srv.Close()

	o := newOrchestrator(t, Options{Workers: 3})
	res := o.Sync(context.Background(), tenFiles(), srv.URL, t.TempDir())

	assert.True(t, res.OK())
	assert.LessOrEqual(t, fs.peak.Load(), int64(3))
}

func TestSync_Empty(t *testing.T) {
	called := false
	o := newOrchestrator(t, Options{OnProgress: func(int, int) { called = true }})

	res := o.Sync(context.Background(), nil, "http://127.0.0.1:1", t.TempDir())
	assert.Equal(t, 0, res.Total)
	assert.True(t, res.OK())
	assert.False(t, called)
}

func TestSync_Canceled(t *testing.T) {
	started := make(chan struct{}, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	var completed atomic.Int64
	o := newOrchestrator(t, Options{
		Workers:    2,
		OnProgress: func(int, int) { completed.Add(1) },
	})
	res := o.Sync(ctx, tenFiles(), srv.URL, t.TempDir())

	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 0, res.Succeeded)
	assert.Len(t, res.Failed, 10)
	assert.Equal(t, int64(10), completed.Load())
	for _, f := range res.Failed {
		assert.Equal(t, types.KindCanceled, types.KindOf(f.Err), "file %s: %v", f.File.RelPath(), f.Err)
	}
}

func TestSync_CanceledBeforeStartCreatesNothing(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := t.TempDir()
	o := newOrchestrator(t, Options{Workers: 4})
	res := o.Sync(ctx, tenFiles(), srv.URL, root)

	assert.Equal(t, 0, res.Succeeded)
	require.Len(t, res.Failed, 10)
	for _, f := range res.Failed {
		assert.Equal(t, types.KindCanceled, types.KindOf(f.Err))
	}
	assert.Zero(t, requests.Load())

	_, err := os.Stat(filepath.Join(root, "Data"))
	assert.True(t, os.IsNotExist(err), "Data folder created after cancel")
}

func TestFetchFile_CanceledSkipsFolderCreation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	root := t.TempDir()
	o := newOrchestrator(t, Options{Workers: 1})
	_, err := o.fetchFile(ctx, types.PendingFile{Folder: "Data/Sound", Name: "a.fsb"}, "http://127.0.0.1:1", root)

	assert.Equal(t, types.KindCanceled, types.KindOf(err))
	_, statErr := os.Stat(filepath.Join(root, "Data"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSync_RefusesPathOutsideRoot(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	base := t.TempDir()
	root := filepath.Join(base, "servers", "S", "Client")
	require.NoError(t, os.MkdirAll(root, 0o755))

	files := []types.PendingFile{
		{Folder: "../..", Name: "escaped.bin"},
		{Folder: "Data", Name: "ok.bin"},
	}
	o := newOrchestrator(t, Options{Workers: 2})
	res := o.Sync(context.Background(), files, srv.URL, root)

	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "../../escaped.bin", res.Failed[0].File.RelPath())
	assert.ErrorIs(t, res.Failed[0].Err, types.ErrUnsafePath)
	assert.Equal(t, types.KindProtocol, types.KindOf(res.Failed[0].Err))
	assert.Equal(t, int64(1), requests.Load())

	_, err := os.Stat(filepath.Join(base, "servers", "escaped.bin"))
	assert.True(t, os.IsNotExist(err), "file written outside the client root")
	_, err = os.Stat(filepath.Join(root, "Data", "ok.bin"))
	assert.NoError(t, err)
}

func TestSync_UnwritableDestination(t *testing.T) {
	srv := httptest.NewServer(&fileServer{})
	defer srv.Close()

	root := t.TempDir()
	// A regular file where the Data folder should be.
	require.NoError(t, os.WriteFile(filepath.Join(root, "Data"), []byte("x"), 0o644))

	o := newOrchestrator(t, Options{Workers: 1})
	res := o.Sync(context.Background(), tenFiles()[:1], srv.URL, root)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, types.KindFileSystem, types.KindOf(res.Failed[0].Err))
}

func TestSync_ServerUnreachable(t *testing.T) {
	srv := httptest.NewServer(&fileServer{})
	url := srv.URL
	srv.Close()

	o := newOrchestrator(t, Options{})
	res := o.Sync(context.Background(), tenFiles()[:3], url, t.TempDir())

	assert.Equal(t, 0, res.Succeeded)
	for _, f := range res.Failed {
		assert.Equal(t, types.KindNetwork, types.KindOf(f.Err))
	}
}

func TestFileURL(t *testing.T) {
	assert.Equal(t, "http://h/s/client/FreeRealms.exe",
		FileURL("http://h/s/", types.PendingFile{Name: "FreeRealms.exe"}))
	assert.Equal(t, "http://h/client/Data/Sound%20FX/a%231.fsb",
		FileURL("http://h", types.PendingFile{Folder: "Data/Sound FX", Name: "a#1.fsb"}))
}

func TestOptions_Validate(t *testing.T) {
	var o Options
	require.NoError(t, o.Validate())
	assert.Equal(t, DefaultWorkers, o.Workers)
	assert.NotNil(t, o.HTTPClient)
	assert.Zero(t, o.HTTPClient.Timeout)

	assert.Error(t, (&Options{Workers: -1}).Validate())
	assert.Error(t, (&Options{Workers: MaxWorkers + 1}).Validate())

	_, err := New(Options{Workers: -3})
	assert.Error(t, err)
}
