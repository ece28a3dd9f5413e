// Package history keeps a journal of sync passes as one JSON file per pass.
package history

import (
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// Operation is the kind of pass recorded.
type Operation string

const (
	// OpSync is a verify-and-download pass.
	OpSync Operation = "sync"
	// OpVerify is a verification pass that downloaded nothing.
	OpVerify Operation = "verify"
)

// Entry records one pass over a server.
type Entry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Operation  Operation     `json:"operation"`
	ServerID   string        `json:"server_id"`
	ServerName string        `json:"server_name"`
	ServerURL  string        `json:"server_url"`
	Summary    Summary       `json:"summary"`
	Failed     []FailedEntry `json:"failed,omitempty"`

	// Error is set when the pass stopped before downloading, e.g. because
	// the client manifest could not be fetched.
	Error string `json:"error,omitempty"`
}

// Summary holds the counters of a pass.
type Summary struct {
	// Pending is the number of files the verification found out of date.
	Pending   int   `json:"pending"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	Bytes     int64 `json:"bytes"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// FailedEntry is a file that could not be fetched.
type FailedEntry struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// OK reports whether the pass completed without failures.
func (e *Entry) OK() bool {
	return e.Error == "" && e.Summary.Failed == 0
}

// RecordResult fills the summary and failure list from a download result.
func (e *Entry) RecordResult(res types.SyncResult) {
	e.Summary.Pending = res.Total
	e.Summary.Succeeded = res.Succeeded
	e.Summary.Failed = len(res.Failed)
	e.Summary.Bytes = res.Bytes
	e.Summary.ElapsedMS = res.Elapsed.Milliseconds()

	e.Failed = make([]FailedEntry, 0, len(res.Failed))
	for _, f := range res.Failed {
		fe := FailedEntry{Path: f.File.RelPath(), Kind: types.KindOf(f.Err).String()}
		if f.Err != nil {
			fe.Error = f.Err.Error()
		}
		e.Failed = append(e.Failed, fe)
	}
}
