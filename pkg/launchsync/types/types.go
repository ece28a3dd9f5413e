// Package types provides the value types shared by the launchsync packages:
// pending and failed files, sync results, server status, and the error
// taxonomy used to tell network, protocol, integrity and file system
// failures apart.
package types

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PendingFile identifies a file that must be fetched from the server.
type PendingFile struct {
	// Folder is the slash-separated folder path relative to the client root.
	// It is empty for files that live directly in the root.
	Folder string `json:"folder"`

	// Name is the file name.
	Name string `json:"name"`
}

// RelPath returns the slash-separated path of the file relative to the client root.
func (p PendingFile) RelPath() string {
	if p.Folder == "" {
		return p.Name
	}
	return path.Join(p.Folder, p.Name)
}

// Segments returns the folder segments followed by the file name.
func (p PendingFile) Segments() []string {
	if p.Folder == "" {
		return []string{p.Name}
	}
	return append(strings.Split(p.Folder, "/"), p.Name)
}

// FailedFile pairs a pending file with the error that prevented its download.
type FailedFile struct {
	File PendingFile `json:"file"`
	Err  error       `json:"-"`
}

// SyncResult summarizes one download batch.
type SyncResult struct {
	// Total is the number of files submitted to the batch.
	Total int `json:"total"`

	// Succeeded is Total minus the number of failed files.
	Succeeded int `json:"succeeded"`

	// Failed lists the files that could not be fetched, sorted by path.
	Failed []FailedFile `json:"failed,omitempty"`

	// Bytes is the number of bytes written to disk.
	Bytes int64 `json:"bytes"`

	// Elapsed is the wall time of the batch.
	Elapsed time.Duration `json:"elapsed"`
}

// OK reports whether every file in the batch was fetched.
func (r SyncResult) OK() bool {
	return len(r.Failed) == 0
}

// FailedNames returns the relative paths of the failed files.
func (r SyncResult) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.File.RelPath())
	}
	return names
}

// SortFailed orders failed files by relative path.
func SortFailed(failed []FailedFile) {
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].File.RelPath() < failed[j].File.RelPath()
	})
}

// ServerStatus is the answer of a login server to a status probe.
// The zero value is the offline status.
type ServerStatus struct {
	Online  bool  `json:"online"`
	Locked  bool  `json:"locked"`
	Players int32 `json:"players"`
}

// Offline is the status reported when a server cannot be reached.
var Offline = ServerStatus{}

// String returns a short description such as "online (12 players)".
func (s ServerStatus) String() string {
	switch {
	case !s.Online:
		return "offline"
	case s.Locked:
		return "locked (" + humanize.Comma(int64(s.Players)) + " players)"
	default:
		return "online (" + humanize.Comma(int64(s.Players)) + " players)"
	}
}

// FormatSize converts a size in bytes to a human-readable string
// using binary (IEC) units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}
