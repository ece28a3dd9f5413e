// Package verify decides which files of a client manifest are missing or
// differ from their declared size and content hash.
package verify

import (
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
	"github.com/jamesainslie/launchsync/pkg/launchsync/types"
)

// Reason tells why a file needs to be fetched.
type Reason int

// Reasons, in the order the checks run.
const (
	// UpToDate means the local file matches size and hash.
	UpToDate Reason = iota
	Missing
	SizeMismatch
	HashMismatch
	// Unreadable covers local paths that exist but cannot be hashed,
	// including directories in place of files.
	Unreadable
	// UnsafePath means the manifest path would resolve outside the client
	// root. Such files are reported but never read or written.
	UnsafePath
)

// String returns a short description.
func (r Reason) String() string {
	switch r {
	case UpToDate:
		return "up to date"
	case Missing:
		return "missing"
	case SizeMismatch:
		return "size differs"
	case HashMismatch:
		return "content differs"
	case Unreadable:
		return "unreadable"
	case UnsafePath:
		return "unsafe path"
	default:
		return "unknown"
	}
}

// LocalPath returns the on-disk location of a manifest file below clientRoot.
// A path that would leave clientRoot is refused with types.ErrUnsafePath.
func LocalPath(clientRoot string, f types.PendingFile) (string, error) {
	rel := filepath.FromSlash(f.RelPath())
	if f.Name == "" || strings.ContainsAny(f.Name, `/\`) || !filepath.IsLocal(rel) {
		return "", types.NewError(types.KindProtocol, "resolve", f.RelPath(), types.ErrUnsafePath)
	}
	return filepath.Join(clientRoot, rel), nil
}

// Check compares the file at localPath with its manifest entry. The size
// check runs first so the content is only hashed when sizes agree.
func Check(localPath string, want manifest.ClientFile) Reason {
	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Missing
		}
		logging.Get("verify").Warn("cannot stat local file", "path", localPath, "error", err)
		return Unreadable
	}
	if info.IsDir() {
		logging.Get("verify").Warn("directory in place of file", "path", localPath)
		return Unreadable
	}
	if info.Size() != int64(want.Size) {
		return SizeMismatch
	}

	sum, err := HashFile(localPath)
	if err != nil {
		logging.Get("verify").Warn("cannot hash local file", "path", localPath, "error", err)
		return Unreadable
	}
	if sum != want.Hash {
		return HashMismatch
	}
	return UpToDate
}

// Diff walks m and yields every file that needs fetching along with the
// reason. Each iteration reads the file system afresh; nothing is cached.
// Files are visited depth-first, subfolders before files, in manifest order.
func Diff(m *manifest.ClientManifest, clientRoot string) iter.Seq2[types.PendingFile, Reason] {
	return func(yield func(types.PendingFile, Reason) bool) {
		m.Walk(func(folder string, f manifest.ClientFile) bool {
			pf := types.PendingFile{Folder: folder, Name: f.Name}
			local, err := LocalPath(clientRoot, pf)
			if err != nil {
				logging.Get("verify").Warn("manifest path outside client root", "file", pf.RelPath())
				return yield(pf, UnsafePath)
			}
			reason := Check(local, f)
			if reason == UpToDate {
				return true
			}
			return yield(pf, reason)
		})
	}
}

// FilesNeedingSync yields the files of m that are missing below clientRoot
// or differ in size or content. The sequence is lazy and finite; stopping
// early stops the walk.
func FilesNeedingSync(m *manifest.ClientManifest, clientRoot string) iter.Seq[types.PendingFile] {
	return func(yield func(types.PendingFile) bool) {
		for pf := range Diff(m, clientRoot) {
			if !yield(pf) {
				return
			}
		}
	}
}

// Collect runs FilesNeedingSync to completion.
func Collect(m *manifest.ClientManifest, clientRoot string) []types.PendingFile {
	var out []types.PendingFile
	for pf := range FilesNeedingSync(m, clientRoot) {
		out = append(out, pf)
	}
	return out
}
