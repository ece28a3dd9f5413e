package verify

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the xxHash64 (seed 0) of everything read from r.
func Hash(r io.Reader) (uint64, error) {
	d := xxhash.New()
	if _, err := io.Copy(d, r); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}

// HashFile returns the xxHash64 of the file at path, streaming its content.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sum, err := Hash(f)
	if err != nil {
		return 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}
