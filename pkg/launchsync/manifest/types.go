// Package manifest defines the server and client manifest documents a game
// server publishes, together with the schema-checked XML codec used to read
// and write them.
//
// Manifest values are plain immutable trees: a ClientFolder owns its
// subfolders and files and nothing points back up the tree.
package manifest

import "path"

// Protocol constants for the two manifest documents.
const (
	// ServerManifestVersion is the only accepted server manifest version.
	ServerManifestVersion = 1

	// ClientManifestVersion is the only accepted client manifest version.
	ClientManifestVersion = 1

	// ServerManifestFileName is the file name of the server manifest below the server URL.
	ServerManifestFileName = "servermanifest.xml"

	// ClientManifestFileName is the file name of the client manifest below the server URL.
	ClientManifestFileName = "clientmanifest.xml"
)

// ServerManifest describes a game server.
type ServerManifest struct {
	Version     int
	Name        string
	Description string
	LoginServer string
	LoginAPIURL string

	// RegisterURL is optional and empty when the document omits it.
	RegisterURL string
}

// ClientManifest describes the complete client installation of a server.
type ClientManifest struct {
	Version int
	Locales []Locale
	Root    ClientFolder
}

// ClientFolder is a folder of the client tree.
type ClientFolder struct {
	Name    string
	Folders []ClientFolder
	Files   []ClientFile
}

// ClientFile is a file of the client tree.
type ClientFile struct {
	Name string

	// Size is the file length in bytes.
	Size uint32

	// Hash is the xxHash64 (seed 0) of the file contents.
	Hash uint64
}

// WalkFunc is called for every file of a client tree. folder is the
// slash-separated path of the containing folder relative to the client
// root, empty for files directly in the root. Returning false stops the walk.
type WalkFunc func(folder string, file ClientFile) bool

// Walk visits every file below the root folder depth-first, subfolders
// before files, in declared order. The root folder's own name is not part of
// the reported paths.
func (m *ClientManifest) Walk(fn WalkFunc) {
	walkFolder(&m.Root, "", fn)
}

func walkFolder(f *ClientFolder, rel string, fn WalkFunc) bool {
	for i := range f.Folders {
		sub := &f.Folders[i]
		if !walkFolder(sub, path.Join(rel, sub.Name), fn) {
			return false
		}
	}
	for _, file := range f.Files {
		if !fn(rel, file) {
			return false
		}
	}
	return true
}

// FileCount returns the number of files in the tree.
func (m *ClientManifest) FileCount() int {
	n := 0
	m.Walk(func(string, ClientFile) bool {
		n++
		return true
	})
	return n
}

// TotalSize returns the sum of all declared file sizes.
func (m *ClientManifest) TotalSize() int64 {
	var total int64
	m.Walk(func(_ string, f ClientFile) bool {
		total += int64(f.Size)
		return true
	})
	return total
}

// SupportsLocale reports whether l is listed in the manifest's languages.
func (m *ClientManifest) SupportsLocale(l Locale) bool {
	for _, have := range m.Locales {
		if have == l {
			return true
		}
	}
	return false
}
