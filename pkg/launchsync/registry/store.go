// Package registry persists the game servers a user has added, in a badger
// key-value store.
package registry

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Lookup errors.
var (
	ErrNotFound     = errors.New("server not found")
	ErrAmbiguous    = errors.New("server reference is ambiguous")
	ErrDuplicateURL = errors.New("server url already registered")
)

// keyPrefix namespaces server records. Format: server\x00<uuid>
const keyPrefix = "server\x00"

// Server is a registered game server.
type Server struct {
	ID  uuid.UUID
	URL string

	Name        string
	Description string
	LoginServer string
	LoginAPIURL string
	RegisterURL string

	// SavePath is the directory holding this server's files. The client
	// tree lives in its Client subdirectory.
	SavePath string

	AddedAt  time.Time
	LastSync time.Time
}

// ClientRoot returns the directory the client files are synced into.
func (s *Server) ClientRoot() string {
	return filepath.Join(s.SavePath, "Client")
}

func (s *Server) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(s)
}

func key(id uuid.UUID) []byte {
	return []byte(keyPrefix + id.String())
}

// Store holds server records.
type Store struct {
	db *badger.DB
}

// Open opens or creates a store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts or replaces srv. A nil ID is assigned a new random one and a
// zero AddedAt is set to now.
func (s *Store) Put(srv *Server) error {
	if srv.ID == uuid.Nil {
		srv.ID = uuid.New()
	}
	if srv.AddedAt.IsZero() {
		srv.AddedAt = time.Now().UTC()
	}

	value, err := srv.encode()
	if err != nil {
		return fmt.Errorf("encoding server %s: %w", srv.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(srv.ID), value)
	})
}

// Get returns the server with id.
func (s *Store) Get(id uuid.UUID) (*Server, error) {
	var srv Server
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(srv.decode)
	})
	if err != nil {
		return nil, err
	}
	return &srv, nil
}

// List returns all servers sorted by name, then ID.
func (s *Store) List() ([]*Server, error) {
	var out []*Server
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var srv Server
			if err := it.Item().Value(srv.decode); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			out = append(out, &srv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Delete removes the server with id. Deleting an unknown id returns ErrNotFound.
func (s *Store) Delete(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key(id))
	})
}

// FindByURL returns the server registered under url. Trailing slashes and
// letter case are ignored.
func (s *Store) FindByURL(url string) (*Server, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	want := normalizeURL(url)
	for _, srv := range all {
		if normalizeURL(srv.URL) == want {
			return srv, nil
		}
	}
	return nil, ErrNotFound
}

// Resolve finds a server by full ID, unique ID prefix, or name (case
// insensitive).
func (s *Store) Resolve(ref string) (*Server, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}
	if id, err := uuid.Parse(ref); err == nil {
		return s.Get(id)
	}

	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []*Server
	for _, srv := range all {
		if strings.EqualFold(srv.Name, ref) {
			matches = append(matches, srv)
		}
	}
	if len(matches) == 0 {
		for _, srv := range all {
			if strings.HasPrefix(srv.ID.String(), strings.ToLower(ref)) {
				matches = append(matches, srv)
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d servers", ErrAmbiguous, ref, len(matches))
	}
}

func normalizeURL(u string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(u), "/"))
}
