package types

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPendingFile_RelPath(t *testing.T) {
	tests := []struct {
		name string
		file PendingFile
		want string
	}{
		{name: "root file", file: PendingFile{Name: "FreeRealms.exe"}, want: "FreeRealms.exe"},
		{name: "nested file", file: PendingFile{Folder: "Data/Sound", Name: "a.fsb"}, want: "Data/Sound/a.fsb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.file.RelPath())
		})
	}
}

func TestPendingFile_Segments(t *testing.T) {
	assert.Equal(t, []string{"a.bin"}, PendingFile{Name: "a.bin"}.Segments())
	assert.Equal(t, []string{"Data", "Sound", "a.bin"}, PendingFile{Folder: "Data/Sound", Name: "a.bin"}.Segments())
}

func TestSyncResult_OK(t *testing.T) {
	r := SyncResult{Total: 2, Succeeded: 2}
	assert.True(t, r.OK())

	r.Failed = []FailedFile{{File: PendingFile{Name: "x"}}}
	assert.False(t, r.OK())
	assert.Equal(t, []string{"x"}, r.FailedNames())
}

func TestSortFailed(t *testing.T) {
	failed := []FailedFile{
		{File: PendingFile{Folder: "b", Name: "1"}},
		{File: PendingFile{Name: "z"}},
		{File: PendingFile{Folder: "a", Name: "2"}},
	}
	SortFailed(failed)
	assert.Equal(t, []string{"a/2", "b/1", "z"}, SyncResult{Failed: failed}.FailedNames())
}

func TestServerStatus_String(t *testing.T) {
	assert.Equal(t, "offline", Offline.String())
	assert.Equal(t, "online (1,200 players)", ServerStatus{Online: true, Players: 1200}.String())
	assert.Equal(t, "locked (3 players)", ServerStatus{Online: true, Locked: true, Players: 3}.String())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindUnknown},
		{name: "classified", err: NewError(KindIntegrity, "check", "a", errors.New("x")), want: KindIntegrity},
		{name: "wrapped classified", err: fmt.Errorf("outer: %w", NewError(KindProtocol, "", "", nil)), want: KindProtocol},
		{name: "canceled", err: context.Canceled, want: KindCanceled},
		{name: "deadline", err: context.DeadlineExceeded, want: KindNetwork},
		{name: "version", err: fmt.Errorf("x: %w", ErrVersionMismatch), want: KindProtocol},
		{name: "status", err: ErrHTTPStatus, want: KindNetwork},
		{name: "url error", err: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, want: KindNetwork},
		{name: "path error", err: &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, want: KindFileSystem},
		{name: "plain", err: errors.New("plain"), want: KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindProtocol, "fetch client manifest", "http://host/clientmanifest.xml", ErrVersionMismatch)
	assert.Equal(t,
		"fetch client manifest http://host/clientmanifest.xml (protocol error): manifest version mismatch",
		err.Error())
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestNewError_DerivesKind(t *testing.T) {
	err := NewError(KindUnknown, "write", "/x", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist})
	assert.Equal(t, KindFileSystem, err.Kind)
}
