package logging

import "sync"

// DefaultBufferSize is the number of entries kept for the TUI.
const DefaultBufferSize = 50

// LogBuffer is a fixed-size ring of recent entries.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewLogBuffer returns a buffer holding at most size entries. A size of
// zero or less uses DefaultBufferSize.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &LogBuffer{entries: make([]Entry, size)}
}

// Add appends e, overwriting the oldest entry when the buffer is full.
func (b *LogBuffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Len returns the number of stored entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lenLocked()
}

func (b *LogBuffer) lenLocked() int {
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Last returns up to n of the newest entries, oldest first.
func (b *LogBuffer) Last(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := b.lenLocked()
	if n > count || n < 0 {
		n = count
	}

	out := make([]Entry, n)
	start := b.next - n
	if start < 0 {
		start += len(b.entries)
	}
	for i := range out {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

// Entries returns all stored entries, oldest first.
func (b *LogBuffer) Entries() []Entry {
	return b.Last(-1)
}
