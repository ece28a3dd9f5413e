package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// PrettyFormatter writes colored, boxed output for terminals.
type PrettyFormatter struct{}

// Servers renders a server table.
func (f *PrettyFormatter) Servers(w *bytes.Buffer, servers []ServerView) error {
	if len(servers) == 0 {
		w.WriteString(MutedStyle.Render("No servers registered. Add one with: launchsync server add <url>") + "\n")
		return nil
	}

	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		last := MutedStyle.Render("never")
		if s.LastSync != nil {
			last = humanize.Time(*s.LastSync)
		}
		rows = append(rows, []string{
			MutedStyle.Render(shortID(s.ID)),
			TitleStyle.Render(s.Name),
			PathStyle.Render(s.URL),
			last,
		})
	}
	w.WriteString(renderTable([]string{"ID", "NAME", "URL", "LAST SYNC"}, rows))
	return nil
}

// Statuses renders one line per probe.
func (f *PrettyFormatter) Statuses(w *bytes.Buffer, statuses []StatusView) error {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		name := s.Server
		if name == "" {
			name = s.Address
		}
		players := MutedStyle.Render("-")
		if s.Online {
			players = ValueStyle.Render(humanize.Comma(int64(s.Players)))
		}
		rows = append(rows, []string{TitleStyle.Render(name), MutedStyle.Render(s.Address), statusBadge(s), players})
	}
	w.WriteString(renderTable([]string{"SERVER", "ADDRESS", "STATUS", "PLAYERS"}, rows))
	return nil
}

// Report renders a header box, the file lists, and a summary footer.
func (f *PrettyFormatter) Report(w *bytes.Buffer, r ReportView) error {
	header := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("Server:"), TitleStyle.Render(r.Server)),
		fmt.Sprintf("%s %s", LabelStyle.Render("Manifest:"),
			ValueStyle.Render(fmt.Sprintf("%s files, %s", humanize.Comma(int64(r.Files)), types.FormatSize(r.TotalSize)))),
	}
	w.WriteString(HeaderBox.Render(strings.Join(header, "\n")))
	w.WriteString("\n")

	if r.Operation == "verify" && len(r.Pending) > 0 {
		w.WriteString(WarningStyle.Bold(true).Render("Out of date:") + "\n")
		for _, p := range r.Pending {
			w.WriteString("  " + PathStyle.Render(p) + "\n")
		}
	}

	if len(r.Failed) > 0 {
		w.WriteString(ErrorStyle.Bold(true).Render("Failed:") + "\n")
		for _, fv := range r.Failed {
			fmt.Fprintf(w, "  %s %s\n", PathStyle.Render(fv.Path), MutedStyle.Render(fv.Kind+": "+fv.Error))
		}
	}

	if len(r.Extraneous) > 0 {
		w.WriteString(MutedStyle.Bold(true).Render("Not in manifest:") + "\n")
		for _, p := range r.Extraneous {
			w.WriteString("  " + MutedStyle.Render(p) + "\n")
		}
	}

	w.WriteString(f.reportFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) reportFooter(r ReportView) string {
	var parts []string
	if r.UpToDate {
		parts = append(parts, SuccessStyle.Bold(true).Render("Up to date"))
	} else if r.Operation == "verify" {
		parts = append(parts, WarningStyle.Bold(true).Render(fmt.Sprintf("%d to download", len(r.Pending))))
	} else {
		parts = append(parts, ErrorStyle.Bold(true).Render(fmt.Sprintf("%d failed", len(r.Failed))))
	}

	if r.Operation != "verify" && len(r.Pending) > 0 {
		parts = append(parts,
			fmt.Sprintf("%s %s", LabelStyle.Render("Fetched:"),
				ValueStyle.Render(fmt.Sprintf("%d/%d", r.Succeeded, len(r.Pending)))),
			fmt.Sprintf("%s %s", LabelStyle.Render("Size:"), SizeStyle.Render(types.FormatSize(r.Bytes))),
		)
	}
	if r.Elapsed != "" {
		if d, err := time.ParseDuration(r.Elapsed); err == nil {
			parts = append(parts, MutedStyle.Render(formatDuration(d)))
		}
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

// History renders one row per entry.
func (f *PrettyFormatter) History(w *bytes.Buffer, entries []HistoryView) error {
	if len(entries) == 0 {
		w.WriteString(MutedStyle.Render("No history yet") + "\n")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		result := SuccessStyle.Render("ok")
		switch {
		case e.Error != "":
			result = ErrorStyle.Render("error")
		case e.Failed > 0:
			result = ErrorStyle.Render(fmt.Sprintf("%d failed", e.Failed))
		case e.Operation == "verify" && e.Pending > 0:
			result = WarningStyle.Render(fmt.Sprintf("%d pending", e.Pending))
		}
		rows = append(rows, []string{
			MutedStyle.Render(shortID(e.ID)),
			humanize.Time(e.Timestamp),
			e.Operation,
			TitleStyle.Render(e.Server),
			result,
			SizeStyle.Render(types.FormatSize(e.Bytes)),
		})
	}
	w.WriteString(renderTable([]string{"ID", "WHEN", "OP", "SERVER", "RESULT", "SIZE"}, rows))
	return nil
}

// renderTable lays out styled cells in columns sized by their visible width.
func renderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var sb strings.Builder
	line := func(cells []string, style lipgloss.Style) {
		sb.WriteString("  ")
		for i, cell := range cells {
			sb.WriteString(style.Width(widths[i] + 2).Render(cell))
		}
		sb.WriteString("\n")
	}

	line(headers, TableHeaderStyle.PaddingRight(0))
	for _, row := range rows {
		line(row, TableRowStyle.PaddingRight(0))
	}
	return sb.String()
}

func statusBadge(s StatusView) string {
	switch {
	case !s.Online:
		return ErrorStyle.Render("offline")
	case s.Locked:
		return WarningStyle.Render("locked")
	default:
		return SuccessStyle.Render("online")
	}
}

// formatDuration formats d for people.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
