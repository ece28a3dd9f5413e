package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

func noopRun(context.Context, launcher.Sink) (*launcher.Report, error) {
	return &launcher.Report{}, nil
}

func update(t *testing.T, m SyncModel, msg tea.Msg) SyncModel {
	t.Helper()
	next, _ := m.Update(msg)
	sm, ok := next.(SyncModel)
	if !ok {
		t.Fatalf("Update returned %T, want SyncModel", next)
	}
	return sm
}

func TestNewSyncModel(t *testing.T) {
	m := NewSyncModel(context.Background(), "Sanctuary", noopRun)

	if m.server != "Sanctuary" {
		t.Errorf("server = %q, want Sanctuary", m.server)
	}
	if m.done {
		t.Error("expected done to be false initially")
	}
	if m.percent() != 0 {
		t.Errorf("percent = %v, want 0", m.percent())
	}
}

func TestSyncModelProgress(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", noopRun)

	m = update(t, m, PhaseMsg(launcher.PhaseDownload))
	m = update(t, m, ProgressMsg{Completed: 3, Total: 4})
	// Out-of-order delivery must not move the counter backwards.
	m = update(t, m, ProgressMsg{Completed: 2, Total: 4})

	if m.phase != launcher.PhaseDownload {
		t.Errorf("phase = %q, want %q", m.phase, launcher.PhaseDownload)
	}
	if m.completed != 3 {
		t.Errorf("completed = %d, want 3", m.completed)
	}
	if got := m.percent(); got != 0.75 {
		t.Errorf("percent = %v, want 0.75", got)
	}
}

func TestSyncModelFailures(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", noopRun)
	for i := 0; i < maxFailedShown+2; i++ {
		m = update(t, m, FileFailedMsg{Path: "Data/f.bin", Kind: types.KindNetwork})
	}

	view := m.View()
	if !strings.Contains(view, "Failed files:") {
		t.Error("view should list failed files")
	}
	if !strings.Contains(view, "and 2 more") {
		t.Error("view should summarize hidden failures")
	}
}

func TestSyncModelDone(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", noopRun)
	report := &launcher.Report{}

	next, cmd := m.Update(DoneMsg{Report: report})
	m = next.(SyncModel)
	if !m.done {
		t.Error("expected done after DoneMsg")
	}
	if cmd == nil {
		t.Error("expected quit command after DoneMsg")
	}
	if m.ctx.Err() == nil {
		t.Error("expected context to be released after DoneMsg")
	}

	got, err := m.Result()
	if err != nil || got != report {
		t.Errorf("Result() = %v, %v; want report, nil", got, err)
	}
	if !strings.Contains(m.View(), "Sync finished") {
		t.Error("view should show completion")
	}
}

func TestSyncModelDoneWithError(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", noopRun)
	m = update(t, m, DoneMsg{Err: errors.New("manifest unavailable")})

	if _, err := m.Result(); err == nil {
		t.Error("expected error from Result")
	}
	if !strings.Contains(m.View(), "manifest unavailable") {
		t.Error("view should show the error")
	}
}

func TestSyncModelCancel(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", noopRun)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	if m.ctx.Err() == nil {
		t.Error("expected ctrl+c to cancel the pass")
	}
	if m.phase != "canceling" {
		t.Errorf("phase = %q, want canceling", m.phase)
	}
	if _, err := m.Result(); !errors.Is(err, context.Canceled) {
		t.Errorf("Result() error = %v, want context.Canceled", err)
	}
}

func TestChannelSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, 1)
	sink := &channelSink{ctx: ctx, events: events}

	sink.Progress(1, 2)
	// Channel full: progress is dropped rather than blocking a worker.
	sink.Progress(2, 2)
	if got := <-events; got != (ProgressMsg{Completed: 1, Total: 2}) {
		t.Errorf("event = %v, want first progress", got)
	}

	events <- PhaseMsg("filler")
	cancel()
	// Canceled: phase does not block on a full channel.
	sink.Phase("verifying")
}

func TestStartDeliversDone(t *testing.T) {
	m := NewSyncModel(context.Background(), "S", func(_ context.Context, sink launcher.Sink) (*launcher.Report, error) {
		sink.Phase(launcher.PhaseVerify)
		return &launcher.Report{}, nil
	})

	msg := m.start()()
	done, ok := msg.(DoneMsg)
	if !ok {
		t.Fatalf("start returned %T, want DoneMsg", msg)
	}
	if done.Err != nil {
		t.Errorf("unexpected error %v", done.Err)
	}
	if got := <-m.events; got != PhaseMsg(launcher.PhaseVerify) {
		t.Errorf("first event = %v, want phase", got)
	}
	if _, ok := <-m.events; ok {
		t.Error("events should be closed after the pass")
	}
}
