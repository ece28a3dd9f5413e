package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// PlainFormatter writes aligned, uncolored text for scripts and pipes.
type PlainFormatter struct{}

func newTabWriter(w *bytes.Buffer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Servers writes one row per server.
func (f *PlainFormatter) Servers(w *bytes.Buffer, servers []ServerView) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tNAME\tURL\tLAST SYNC")
	for _, s := range servers {
		last := "never"
		if s.LastSync != nil {
			last = s.LastSync.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", shortID(s.ID), s.Name, s.URL, last)
	}
	return tw.Flush()
}

// Statuses writes one row per probe.
func (f *PlainFormatter) Statuses(w *bytes.Buffer, statuses []StatusView) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "SERVER\tADDRESS\tSTATUS\tPLAYERS")
	for _, s := range statuses {
		name := s.Server
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", name, s.Address, statusWord(s), s.Players)
	}
	return tw.Flush()
}

// Report writes a summary followed by pending, failed and extraneous files.
func (f *PlainFormatter) Report(w *bytes.Buffer, r ReportView) error {
	fmt.Fprintf(w, "server: %s\n", r.Server)
	fmt.Fprintf(w, "files: %d (%s)\n", r.Files, types.FormatSize(r.TotalSize))
	fmt.Fprintf(w, "pending: %d\n", len(r.Pending))
	if r.Operation != "verify" {
		fmt.Fprintf(w, "succeeded: %d\n", r.Succeeded)
		fmt.Fprintf(w, "failed: %d\n", len(r.Failed))
		fmt.Fprintf(w, "downloaded: %s\n", types.FormatSize(r.Bytes))
	}
	fmt.Fprintf(w, "up to date: %t\n", r.UpToDate)

	if r.Operation == "verify" {
		writeList(w, "pending", r.Pending)
	}
	if len(r.Failed) > 0 {
		fmt.Fprintln(w, "\nfailed:")
		for _, fv := range r.Failed {
			fmt.Fprintf(w, "  %s (%s): %s\n", fv.Path, fv.Kind, fv.Error)
		}
	}
	writeList(w, "extraneous", r.Extraneous)
	return nil
}

// History writes one row per entry.
func (f *PlainFormatter) History(w *bytes.Buffer, entries []HistoryView) error {
	tw := newTabWriter(w)
	fmt.Fprintln(tw, "ID\tTIME\tOP\tSERVER\tPENDING\tOK\tFAILED\tBYTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			shortID(e.ID), e.Timestamp.Local().Format(time.DateTime), e.Operation, e.Server,
			e.Pending, e.Succeeded, e.Failed, types.FormatSize(e.Bytes))
	}
	return tw.Flush()
}

func writeList(w *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, it := range items {
		w.WriteString("  " + it + "\n")
	}
}

func statusWord(s StatusView) string {
	switch {
	case !s.Online:
		return "offline"
	case s.Locked:
		return "locked"
	default:
		return "online"
	}
}

// shortID returns the first block of a uuid.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
