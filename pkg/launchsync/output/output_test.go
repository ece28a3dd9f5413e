package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/launchsync/pkg/launchsync/history"
	"github.com/jamesainslie/launchsync/pkg/launchsync/launcher"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
	"github.com/jamesainslie/launchsync/pkg/launchsync/registry"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

var testID = uuid.MustParse("6f1c2d3e-aaaa-bbbb-cccc-123456789abc")

func sampleServers() []ServerView {
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []ServerView{
		NewServerView(&registry.Server{ID: testID, Name: "Sanctuary", URL: "http://sanctuary.example", AddedAt: last, LastSync: last}),
		NewServerView(&registry.Server{ID: uuid.New(), Name: "Fresh", URL: "http://fresh.example"}),
	}
}

func sampleReport() ReportView {
	r := &launcher.Report{
		Server: &registry.Server{Name: "Sanctuary"},
		Manifest: &manifest.ClientManifest{Root: manifest.ClientFolder{
			Name:  "Client",
			Files: []manifest.ClientFile{{Name: "a", Size: 10}, {Name: "b", Size: 20}},
		}},
		Pending: []types.PendingFile{{Name: "a"}, {Name: "b"}},
		Result: types.SyncResult{
			Total:     2,
			Succeeded: 1,
			Failed: []types.FailedFile{{
				File: types.PendingFile{Name: "b"},
				Err:  types.NewError(types.KindNetwork, "download", "http://x/client/b", errors.New("boom")),
			}},
			Bytes:   10,
			Elapsed: 1500 * time.Millisecond,
		},
		Extraneous: []string{"old.pak"},
	}
	return NewReportView("sync", r)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "plain", "pretty", "yaml"}, Available())

	for _, name := range Available() {
		f, err := Get(name)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := Get("xml")
	assert.Error(t, err)
}

func TestNewServerView(t *testing.T) {
	views := sampleServers()
	require.NotNil(t, views[0].LastSync)
	assert.Equal(t, testID.String(), views[0].ID)
	assert.Nil(t, views[1].LastSync)
}

func TestNewReportView(t *testing.T) {
	v := sampleReport()
	assert.Equal(t, "Sanctuary", v.Server)
	assert.Equal(t, 2, v.Files)
	assert.Equal(t, int64(30), v.TotalSize)
	assert.Equal(t, []string{"a", "b"}, v.Pending)
	require.Len(t, v.Failed, 1)
	assert.Equal(t, "network", v.Failed[0].Kind)
	assert.False(t, v.UpToDate)
	assert.Equal(t, "1.5s", v.Elapsed)

	verifyView := NewReportView("verify", &launcher.Report{})
	assert.True(t, verifyView.UpToDate)
	assert.NotNil(t, verifyView.Pending)
}

func TestNewHistoryView(t *testing.T) {
	v := NewHistoryView(history.Entry{
		ID:         "abc",
		Operation:  history.OpSync,
		ServerName: "S",
		Summary:    history.Summary{Pending: 3, Succeeded: 2, Failed: 1, ElapsedMS: 2000},
		Failed:     []history.FailedEntry{{Path: "x", Kind: "network", Error: "e"}},
	})
	assert.Equal(t, "sync", v.Operation)
	assert.Equal(t, "2s", v.Elapsed)
	assert.Equal(t, []FailedView{{Path: "x", Kind: "network", Error: "e"}}, v.Files)
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{}

	var buf bytes.Buffer
	require.NoError(t, f.Servers(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, f.Report(&buf, sampleReport()))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Sanctuary", got["server"])
	assert.Equal(t, false, got["up_to_date"])
	assert.Len(t, got["failed"], 1)

	buf.Reset()
	require.NoError(t, f.Statuses(&buf, []StatusView{{Address: "h:1", Online: true, Players: 12}}))
	assert.Contains(t, buf.String(), `"players": 12`)
}

func TestYAMLFormatter(t *testing.T) {
	f := &YAMLFormatter{}
	var buf bytes.Buffer
	require.NoError(t, f.Servers(&buf, sampleServers()))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Sanctuary", got[0]["name"])
	assert.NotContains(t, got[1], "last_sync")
}

func TestPlainFormatter(t *testing.T) {
	f := &PlainFormatter{}

	var buf bytes.Buffer
	require.NoError(t, f.Servers(&buf, sampleServers()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "6f1c2d3e")
	assert.Contains(t, lines[1], "2026-03-01T12:00:00Z")
	assert.Contains(t, lines[2], "never")

	buf.Reset()
	require.NoError(t, f.Statuses(&buf, []StatusView{
		{Server: "A", Address: "a:1", Online: true, Players: 3},
		{Address: "b:2", Online: true, Locked: true},
		{Address: "c:3"},
	}))
	out := buf.String()
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "offline")

	buf.Reset()
	require.NoError(t, f.Report(&buf, sampleReport()))
	out = buf.String()
	assert.Contains(t, out, "succeeded: 1")
	assert.Contains(t, out, "b (network)")
	assert.Contains(t, out, "extraneous:\n  old.pak")
}

func TestPrettyFormatter(t *testing.T) {
	f := &PrettyFormatter{}

	var buf bytes.Buffer
	require.NoError(t, f.Servers(&buf, nil))
	assert.Contains(t, buf.String(), "No servers registered")

	buf.Reset()
	require.NoError(t, f.Servers(&buf, sampleServers()))
	assert.Contains(t, buf.String(), "Sanctuary")
	assert.Contains(t, buf.String(), "never")

	buf.Reset()
	require.NoError(t, f.Report(&buf, sampleReport()))
	out := buf.String()
	assert.Contains(t, out, "Sanctuary")
	assert.Contains(t, out, "Failed:")
	assert.Contains(t, out, "old.pak")
	assert.Contains(t, out, "1/2")

	buf.Reset()
	require.NoError(t, f.History(&buf, []HistoryView{{ID: "abc-def", Operation: "sync", Server: "S", Failed: 2}}))
	assert.Contains(t, buf.String(), "2 failed")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
