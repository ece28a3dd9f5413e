package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// RunFunc performs the sync pass, reporting to sink.
type RunFunc func(ctx context.Context, sink launcher.Sink) (*launcher.Report, error)

// maxFailedShown limits the failure list in the view.
const maxFailedShown = 5

// PhaseMsg reports a new pass phase.
type PhaseMsg string

// ProgressMsg reports finished files.
type ProgressMsg struct {
	Completed int
	Total     int
}

// FileFailedMsg reports a file that could not be fetched.
type FileFailedMsg struct {
	Path string
	Kind types.Kind
}

// DoneMsg carries the outcome of the pass.
type DoneMsg struct {
	Report *launcher.Report
	Err    error
}

// SyncModel shows phase, progress and failures of one sync pass.
type SyncModel struct {
	server    string
	phase     string
	completed int
	total     int
	failed    []FileFailedMsg
	spinner   spinner.Model
	bar       progress.Model
	startTime time.Time
	width     int
	height    int

	done   bool
	report *launcher.Report
	err    error

	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg
	run    RunFunc
}

// NewSyncModel creates the model for a pass over server.
func NewSyncModel(ctx context.Context, server string, run RunFunc) SyncModel {
	ctx, cancel := context.WithCancel(ctx)

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return SyncModel{
		server:    server,
		phase:     "starting",
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
		width:     80,
		height:    24,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan tea.Msg, 256),
		run:       run,
	}
}

// Init starts the spinner and the pass.
func (m SyncModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start(), m.listen())
}

// start runs the pass in the background; its result arrives as DoneMsg.
func (m SyncModel) start() tea.Cmd {
	events := m.events
	ctx := m.ctx
	run := m.run
	return func() tea.Msg {
		report, err := run(ctx, &channelSink{ctx: ctx, events: events})
		close(events)
		return DoneMsg{Report: report, Err: err}
	}
}

// listen waits for the next sink event.
func (m SyncModel) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// Update handles messages.
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			m.phase = "canceling"
		}
		return m, nil

	case PhaseMsg:
		m.phase = string(msg)
		return m, m.listen()

	case ProgressMsg:
		if msg.Completed > m.completed {
			m.completed = msg.Completed
		}
		m.total = msg.Total
		return m, m.listen()

	case FileFailedMsg:
		m.failed = append(m.failed, msg)
		return m, m.listen()

	case DoneMsg:
		m.done = true
		m.report = msg.Report
		m.err = msg.Err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Result returns the outcome once the program has exited. A view closed
// before the pass finished reports context.Canceled.
func (m SyncModel) Result() (*launcher.Report, error) {
	if !m.done {
		return nil, context.Canceled
	}
	return m.report, m.err
}

// View renders the model.
func (m SyncModel) View() string {
	contentWidth := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(renderDivider(contentWidth))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	case m.done:
		b.WriteString(successTextStyle.Render("  Sync finished"))
	default:
		b.WriteString(fmt.Sprintf("  %s %s", m.spinner.View(), m.phase))
	}
	b.WriteString("\n\n")

	m.bar.Width = contentWidth - 4
	b.WriteString("  " + m.bar.ViewAs(m.percent()))
	b.WriteString("\n\n")

	b.WriteString(m.renderStats())
	b.WriteString("\n")

	if failed := m.renderFailed(); failed != "" {
		b.WriteString("\n" + failed)
	}
	if logs := renderLogs(contentWidth); logs != "" {
		b.WriteString("\n" + logs)
	}

	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m SyncModel) percent() float64 {
	if m.total == 0 {
		if m.done {
			return 1
		}
		return 0
	}
	return float64(m.completed) / float64(m.total)
}

func (m SyncModel) renderHeader(width int) string {
	title := titleStyle.Render("  launchsync: " + m.server)
	hint := mutedTextStyle.Render("[q to cancel]")
	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

func (m SyncModel) renderStats() string {
	stat := func(label, value string) string {
		return statLabelStyle.Render(label+" ") + statValueStyle.Render(value)
	}
	parts := []string{
		stat("Files:", fmt.Sprintf("%s/%s", humanize.Comma(int64(m.completed)), humanize.Comma(int64(m.total)))),
		stat("Failed:", fmt.Sprintf("%d", len(m.failed))),
		stat("Elapsed:", time.Since(m.startTime).Round(time.Second).String()),
	}
	return "  " + strings.Join(parts, "   ")
}

func (m SyncModel) renderFailed() string {
	if len(m.failed) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(warningTextStyle.Render("  Failed files:") + "\n")
	start := max(len(m.failed)-maxFailedShown, 0)
	for _, f := range m.failed[start:] {
		b.WriteString(fmt.Sprintf("    %s %s\n", f.Path, mutedTextStyle.Render("("+f.Kind.String()+")")))
	}
	if start > 0 {
		b.WriteString(mutedTextStyle.Render(fmt.Sprintf("    and %d more", start)) + "\n")
	}
	return b.String()
}

// renderLogs shows the latest warnings from the log buffer.
func renderLogs(width int) string {
	buf := logging.Buffer()
	if buf == nil {
		return ""
	}
	entries := buf.Last(3)
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range entries {
		line := fmt.Sprintf("  %s %s: %s", e.Time.Format(time.TimeOnly), e.Component, e.Message)
		if len(line) > width {
			line = line[:width]
		}
		style := warningTextStyle
		if e.Level >= logging.LevelError {
			style = errorTextStyle
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}

// channelSink forwards launcher events to the model. Progress events are
// dropped when the channel is full; the next one carries the newer count.
type channelSink struct {
	ctx    context.Context
	events chan<- tea.Msg
}

func (s *channelSink) Phase(name string) {
	select {
	case s.events <- PhaseMsg(name):
	case <-s.ctx.Done():
	}
}

func (s *channelSink) Progress(completed, total int) {
	select {
	case s.events <- ProgressMsg{Completed: completed, Total: total}:
	default:
	}
}

func (s *channelSink) FileFailed(f types.PendingFile, err error) {
	select {
	case s.events <- FileFailedMsg{Path: f.RelPath(), Kind: types.KindOf(err)}:
	case <-s.ctx.Done():
	}
}

// Run shows the progress view until the pass finishes or is canceled.
func Run(ctx context.Context, server string, run RunFunc) (*launcher.Report, error) {
	model := NewSyncModel(ctx, server, run)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("running progress view: %w", err)
	}
	return final.(SyncModel).Result()
}
