package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter writes the same structures as JSONFormatter in YAML.
type YAMLFormatter struct{}

func (f *YAMLFormatter) encode(w *bytes.Buffer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// Servers writes a sequence of servers.
func (f *YAMLFormatter) Servers(w *bytes.Buffer, servers []ServerView) error {
	return f.encode(w, servers)
}

// Statuses writes a sequence of probe results.
func (f *YAMLFormatter) Statuses(w *bytes.Buffer, statuses []StatusView) error {
	return f.encode(w, statuses)
}

// Report writes a single report mapping.
func (f *YAMLFormatter) Report(w *bytes.Buffer, r ReportView) error {
	return f.encode(w, r)
}

// History writes a sequence of entries.
func (f *YAMLFormatter) History(w *bytes.Buffer, entries []HistoryView) error {
	return f.encode(w, entries)
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

var _ Formatter = (*YAMLFormatter)(nil)
