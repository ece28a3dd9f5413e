package output

import (
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// ServerView is a registered server.
type ServerView struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	URL         string     `json:"url" yaml:"url"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	LoginServer string     `json:"login_server" yaml:"login_server"`
	LoginAPIURL string     `json:"login_api_url" yaml:"login_api_url"`
	RegisterURL string     `json:"register_url,omitempty" yaml:"register_url,omitempty"`
	SavePath    string     `json:"save_path" yaml:"save_path"`
	AddedAt     time.Time  `json:"added_at" yaml:"added_at"`
	LastSync    *time.Time `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
}

// NewServerView converts a registry record.
func NewServerView(s *registry.Server) ServerView {
	v := ServerView{
		ID:          s.ID.String(),
		Name:        s.Name,
		URL:         s.URL,
		Description: s.Description,
		LoginServer: s.LoginServer,
		LoginAPIURL: s.LoginAPIURL,
		RegisterURL: s.RegisterURL,
		SavePath:    s.SavePath,
		AddedAt:     s.AddedAt,
	}
	if !s.LastSync.IsZero() {
		last := s.LastSync
		v.LastSync = &last
	}
	return v
}

// StatusView is the result of one status probe.
type StatusView struct {
	Server  string `json:"server,omitempty" yaml:"server,omitempty"`
	Address string `json:"address" yaml:"address"`
	Online  bool   `json:"online" yaml:"online"`
	Locked  bool   `json:"locked" yaml:"locked"`
	Players int32  `json:"players" yaml:"players"`

	// Error explains an offline result, when known.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	Time time.Time `json:"time" yaml:"time"`
}

// NewStatusView converts a probe result.
func NewStatusView(server, address string, s types.ServerStatus, err error, at time.Time) StatusView {
	v := StatusView{
		Server:  server,
		Address: address,
		Online:  s.Online,
		Locked:  s.Locked,
		Players: s.Players,
		Time:    at,
	}
	if err != nil {
		v.Error = err.Error()
	}
	return v
}

// FailedView is a file that could not be fetched.
type FailedView struct {
	Path  string `json:"path" yaml:"path"`
	Kind  string `json:"kind" yaml:"kind"`
	Error string `json:"error" yaml:"error"`
}

// ReportView is the outcome of a verify or sync pass.
type ReportView struct {
	Server     string       `json:"server" yaml:"server"`
	Operation  string       `json:"operation" yaml:"operation"`
	Files      int          `json:"files" yaml:"files"`
	TotalSize  int64        `json:"total_size" yaml:"total_size"`
	Pending    []string     `json:"pending" yaml:"pending"`
	Succeeded  int          `json:"succeeded" yaml:"succeeded"`
	Failed     []FailedView `json:"failed,omitempty" yaml:"failed,omitempty"`
	Bytes      int64        `json:"bytes" yaml:"bytes"`
	Elapsed    string       `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Extraneous []string     `json:"extraneous,omitempty" yaml:"extraneous,omitempty"`
	UpToDate   bool         `json:"up_to_date" yaml:"up_to_date"`
	HistoryID  string       `json:"history_id,omitempty" yaml:"history_id,omitempty"`
}

// NewReportView converts a launcher report. op is "verify" or "sync".
func NewReportView(op string, r *launcher.Report) ReportView {
	v := ReportView{
		Operation:  op,
		Pending:    make([]string, 0, len(r.Pending)),
		Succeeded:  r.Result.Succeeded,
		Bytes:      r.Result.Bytes,
		Elapsed:    formatDurationString(r.Result.Elapsed),
		Extraneous: r.Extraneous,
		HistoryID:  r.HistoryID,
	}
	if r.Server != nil {
		v.Server = r.Server.Name
	}
	if r.Manifest != nil {
		v.Files = r.Manifest.FileCount()
		v.TotalSize = r.Manifest.TotalSize()
	}
	for _, p := range r.Pending {
		v.Pending = append(v.Pending, p.RelPath())
	}
	for _, f := range r.Result.Failed {
		fv := FailedView{Path: f.File.RelPath(), Kind: types.KindOf(f.Err).String()}
		if f.Err != nil {
			fv.Error = f.Err.Error()
		}
		v.Failed = append(v.Failed, fv)
	}
	if op == string(history.OpVerify) {
		v.UpToDate = len(r.Pending) == 0
	} else {
		v.UpToDate = r.UpToDate()
	}
	return v
}

// HistoryView is one journal entry.
type HistoryView struct {
	ID        string       `json:"id" yaml:"id"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Operation string       `json:"operation" yaml:"operation"`
	Server    string       `json:"server" yaml:"server"`
	ServerID  string       `json:"server_id" yaml:"server_id"`
	Pending   int          `json:"pending" yaml:"pending"`
	Succeeded int          `json:"succeeded" yaml:"succeeded"`
	Failed    int          `json:"failed" yaml:"failed"`
	Bytes     int64        `json:"bytes" yaml:"bytes"`
	Elapsed   string       `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Files     []FailedView `json:"failed_files,omitempty" yaml:"failed_files,omitempty"`
	Error     string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewHistoryView converts a journal entry.
func NewHistoryView(e history.Entry) HistoryView {
	v := HistoryView{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Operation: string(e.Operation),
		Server:    e.ServerName,
		ServerID:  e.ServerID,
		Pending:   e.Summary.Pending,
		Succeeded: e.Summary.Succeeded,
		Failed:    e.Summary.Failed,
		Bytes:     e.Summary.Bytes,
		Elapsed:   formatDurationString(time.Duration(e.Summary.ElapsedMS) * time.Millisecond),
		Error:     e.Error,
	}
	for _, f := range e.Failed {
		v.Files = append(v.Files, FailedView(f))
	}
	return v
}

// formatDurationString returns d as a string, or "" for zero.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
