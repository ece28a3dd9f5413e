package output

import (
	"bytes"
	"encoding/json"
)

// JSONFormatter writes indented JSON documents.
type JSONFormatter struct{}

func (f *JSONFormatter) encode(w *bytes.Buffer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Servers writes an array of servers.
func (f *JSONFormatter) Servers(w *bytes.Buffer, servers []ServerView) error {
	if servers == nil {
		servers = []ServerView{}
	}
	return f.encode(w, servers)
}

// Statuses writes an array of probe results.
func (f *JSONFormatter) Statuses(w *bytes.Buffer, statuses []StatusView) error {
	if statuses == nil {
		statuses = []StatusView{}
	}
	return f.encode(w, statuses)
}

// Report writes a single report object.
func (f *JSONFormatter) Report(w *bytes.Buffer, r ReportView) error {
	return f.encode(w, r)
}

// History writes an array of entries, newest first.
func (f *JSONFormatter) History(w *bytes.Buffer, entries []HistoryView) error {
	if entries == nil {
		entries = []HistoryView{}
	}
	return f.encode(w, entries)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

var _ Formatter = (*JSONFormatter)(nil)
