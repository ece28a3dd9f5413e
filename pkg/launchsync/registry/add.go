package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/launchsync/pkg/launchsync/fetch"
	"github.com/jamesainslie/launchsync/pkg/launchsync/logging"
	"github.com/jamesainslie/launchsync/pkg/launchsync/manifest"
)

// ErrMissingName is returned when a server manifest has an empty name.
var ErrMissingName = errors.New("server name is missing in manifest")

// ManifestFetcher retrieves a server manifest. *fetch.Client implements it.
type ManifestFetcher interface {
	FetchServerManifest(ctx context.Context, baseURL string) (*manifest.ServerManifest, error)
}

// Add registers the server at rawURL: the URL is validated, the server
// manifest fetched, a unique save directory created below serversDir, and
// the record stored.
func (s *Store) Add(ctx context.Context, fetcher ManifestFetcher, serversDir, rawURL string) (*Server, error) {
	url, err := fetch.ValidateServerURL(rawURL)
	if err != nil {
		return nil, err
	}

	if existing, err := s.FindByURL(url); err == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrDuplicateURL, existing.Name, existing.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m, err := fetcher.FetchServerManifest(ctx, url)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(m.Name) == "" {
		return nil, ErrMissingName
	}

	savePath, err := AllocateSavePath(serversDir, m.Name)
	if err != nil {
		return nil, err
	}

	srv := &Server{URL: url, SavePath: savePath}
	ApplyManifest(srv, m)
	if err := s.Put(srv); err != nil {
		_ = os.Remove(savePath)
		return nil, fmt.Errorf("storing server: %w", err)
	}

	logging.Get("registry").Info("server added", "id", srv.ID, "name", srv.Name, "url", url, "path", savePath)
	return srv, nil
}

// ApplyManifest copies the descriptive fields of m onto srv.
func ApplyManifest(srv *Server, m *manifest.ServerManifest) {
	srv.Name = m.Name
	srv.Description = m.Description
	srv.LoginServer = m.LoginServer
	srv.LoginAPIURL = m.LoginAPIURL
	srv.RegisterURL = m.RegisterURL
}

// Remove deletes the record of srv and, when deleteFiles is set, the
// server's save directory.
func (s *Store) Remove(srv *Server, deleteFiles bool) error {
	if deleteFiles && srv.SavePath != "" {
		if err := os.RemoveAll(srv.SavePath); err != nil {
			return fmt.Errorf("deleting server directory: %w", err)
		}
	}
	if err := s.Delete(srv.ID); err != nil {
		return err
	}
	logging.Get("registry").Info("server removed", "id", srv.ID, "name", srv.Name, "files_deleted", deleteFiles)
	return nil
}

// AllocateSavePath creates a new directory for a server named name below
// serversDir and returns its path. The name is sanitized; if the directory
// exists, _1, _2, ... is appended until an unused name is found.
func AllocateSavePath(serversDir, name string) (string, error) {
	if err := os.MkdirAll(serversDir, 0o755); err != nil {
		return "", fmt.Errorf("creating servers directory: %w", err)
	}

	base := SanitizeDirName(name)
	candidate := base
	for i := 1; ; i++ {
		p := filepath.Join(serversDir, candidate)
		err := os.Mkdir(p, 0o755)
		if err == nil {
			return p, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("creating save path: %w", err)
		}
		candidate = base + "_" + strconv.Itoa(i)
	}
}

// SanitizeDirName replaces characters that are invalid in directory names
// on common platforms with underscores.
func SanitizeDirName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"/\|?*`, r) {
			return '_'
		}
		return r
	}, name)

	mapped = strings.TrimRight(strings.TrimSpace(mapped), ".")
	if mapped == "" {
		return "server"
	}
	return mapped
}
