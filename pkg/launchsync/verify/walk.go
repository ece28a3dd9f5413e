package verify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
)

// Extraneous lists regular files below clientRoot that m does not declare.
// Paths are slash-separated, relative to clientRoot and sorted. Nothing is
// removed. Names are compared without regard to case. A missing clientRoot
// yields no files.
func Extraneous(ctx context.Context, m *manifest.ClientManifest, clientRoot string) ([]string, error) {
	declared := make(map[string]struct{}, m.FileCount())
	m.Walk(func(folder string, f manifest.ClientFile) bool {
		declared[strings.ToLower(joinRel(folder, f.Name))] = struct{}{}
		return true
	})

	var (
		mu    sync.Mutex
		extra []string
	)
	err := walkFiles(ctx, clientRoot, func(rel string, _ fs.DirEntry) error {
		if _, ok := declared[strings.ToLower(rel)]; ok {
			return nil
		}
		mu.Lock()
		extra = append(extra, rel)
		mu.Unlock()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(extra)
	return extra, nil
}

// Build hashes every regular file below dir and returns a client manifest
// describing it. The root folder is named after dir. Sibling entries are
// sorted by name so the output is stable.
func Build(ctx context.Context, dir string, locales []manifest.Locale) (*manifest.ClientManifest, error) {
	type entry struct {
		rel  string
		file manifest.ClientFile
	}

	var (
		mu      sync.Mutex
		entries []entry
	)
	err := walkFiles(ctx, dir, func(rel string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > math.MaxUint32 {
			return fmt.Errorf("%s: size %d exceeds the manifest limit", rel, info.Size())
		}
		sum, err := HashFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}

		mu.Lock()
		entries = append(entries, entry{rel: rel, file: manifest.ClientFile{
			Name: d.Name(),
			Size: uint32(info.Size()),
			Hash: sum,
		}})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building manifest for %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })

	root := manifest.ClientFolder{Name: filepath.Base(filepath.Clean(dir))}
	for _, e := range entries {
		folder := &root
		if parent := filepath.ToSlash(filepath.Dir(filepath.FromSlash(e.rel))); parent != "." {
			for _, seg := range strings.Split(parent, "/") {
				folder = childFolder(folder, seg)
			}
		}
		folder.Files = append(folder.Files, e.file)
	}

	logging.Get("verify").Info("manifest built", "dir", dir, "files", len(entries))
	return &manifest.ClientManifest{
		Version: manifest.ClientManifestVersion,
		Locales: locales,
		Root:    root,
	}, nil
}

// childFolder returns the subfolder named name, appending it when absent.
// Entries arrive sorted, so appending keeps siblings sorted.
func childFolder(f *manifest.ClientFolder, name string) *manifest.ClientFolder {
	for i := range f.Folders {
		if f.Folders[i].Name == name {
			return &f.Folders[i]
		}
	}
	f.Folders = append(f.Folders, manifest.ClientFolder{Name: name})
	return &f.Folders[len(f.Folders)-1]
}

// walkFiles calls fn concurrently for each regular file below root with its
// slash-separated relative path. Symlinks are not followed.
func walkFiles(ctx context.Context, root string, fn func(rel string, d fs.DirEntry) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	conf := fastwalk.Config{Follow: false}
	return fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logging.Get("verify").Warn("walk error", "path", path, "error", err)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(filepath.ToSlash(rel), d)
	})
}

func joinRel(folder, name string) string {
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
