// Package trash moves server directories to the desktop trash so a removed
// server's files can be restored. When no trash is available the path is
// deleted instead.
package trash

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
)

// Outcome reports what Move did with a path.
type Outcome int

const (
	// Trashed means the path was moved to the trash.
	Trashed Outcome = iota
	// Deleted means no trash was usable and the path was removed.
	Deleted
)

// String returns the outcome as a past-tense verb.
func (o Outcome) String() string {
	if o == Trashed {
		return "trashed"
	}
	return "deleted"
}

const commandTimeout = 30 * time.Second

// Move moves path to the trash. On Linux and other XDG systems it uses the
// freedesktop.org layout below $XDG_DATA_HOME/Trash; on macOS it asks Finder.
func Move(ctx context.Context, path string) (Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Deleted, fmt.Errorf("resolving %q: %w", path, err)
	}
	if _, err := os.Lstat(abs); err != nil {
		return Deleted, fmt.Errorf("cannot trash %q: %w", path, err)
	}

	log := logging.Get("trash")
	switch runtime.GOOS {
	case "darwin":
		err = finderTrash(ctx, abs)
	case "windows":
		err = errors.ErrUnsupported
	default:
		err = xdgTrash(filepath.Join(xdg.DataHome, "Trash"), abs, time.Now())
	}
	if err == nil {
		log.Info("moved to trash", "path", abs)
		return Trashed, nil
	}

	log.Warn("trash unavailable, deleting", "path", abs, "error", err)
	if err := os.RemoveAll(abs); err != nil {
		return Deleted, fmt.Errorf("deleting %q: %w", abs, err)
	}
	return Deleted, nil
}

func finderTrash(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file %q`, path)
	return exec.CommandContext(ctx, "osascript", "-e", script).Run()
}

// xdgTrash moves path into trashDir/files and writes the matching
// trashinfo record. Only same-filesystem renames are attempted.
func xdgTrash(trashDir, path string, now time.Time) error {
	filesDir := filepath.Join(trashDir, "files")
	infoDir := filepath.Join(trashDir, "info")
	for _, dir := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}

	name, info, err := reserveInfo(infoDir, filepath.Base(path))
	if err != nil {
		return err
	}

	record := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: path}).EscapedPath(), now.Format("2006-01-02T15:04:05"))
	if _, err := info.WriteString(record); err != nil {
		_ = info.Close()
		_ = os.Remove(info.Name())
		return err
	}
	if err := info.Close(); err != nil {
		_ = os.Remove(info.Name())
		return err
	}

	if err := os.Rename(path, filepath.Join(filesDir, name)); err != nil {
		_ = os.Remove(info.Name())
		return err
	}
	return nil
}

// reserveInfo creates info/<name>.trashinfo exclusively, suffixing name
// with .2, .3, ... until an unused name is found.
func reserveInfo(infoDir, base string) (string, *os.File, error) {
	name := base
	for i := 2; ; i++ {
		f, err := os.OpenFile(filepath.Join(infoDir, name+".trashinfo"), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return name, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, err
		}
		name = base + "." + strconv.Itoa(i)
	}
}
