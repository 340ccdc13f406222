// Package logbuf provides the bounded in-memory log history served by the
// control API. It is a fixed-capacity ring: appends are O(1) and once full
// the oldest entry is overwritten.
package logbuf

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained by the controller's
// log history.
const DefaultCapacity = 100

// Entry is a single timestamped log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

func (e Entry) String() string {
	return e.Timestamp.Format("15:04:05") + " - " + e.Message
}

// Buffer is a mutex-guarded ring of log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	start   int // index of the oldest entry
	count   int
	now     func() time.Time
}

// New creates a buffer retaining at most capacity entries. A capacity of
// zero or less falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Append adds a message, evicting the oldest entry when the ring is full.
func (b *Buffer) Append(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % len(b.entries)
	b.entries[idx] = Entry{Timestamp: b.now(), Message: msg}
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Recent returns up to n entries, oldest first, ending at the newest.
// n values larger than the retained count return everything retained.
func (b *Buffer) Recent(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.count {
		n = b.count
	}

	out := make([]Entry, n)
	first := b.start + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.entries[(first+i)%len(b.entries)]
	}
	return out
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
