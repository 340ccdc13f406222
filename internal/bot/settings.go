package bot

import (
	"sync"
	"sync/atomic"
)

// Settings are the runtime trading parameters. A Settings value is immutable
// once published: the control surface replaces the whole snapshot, never
// mutates one in place, so a cycle reading a snapshot at its start can never
// observe a half-applied update.
type Settings struct {
	Symbols           []string
	PositionSize      int
	StopLossPercent   float64
	TakeProfitPercent float64
}

func (s Settings) clone() Settings {
	out := s
	out.Symbols = append([]string(nil), s.Symbols...)
	return out
}

// settingsStore publishes Settings snapshots. Reads are lock-free; writers
// are serialized so concurrent field updates do not lose each other.
type settingsStore struct {
	mu  sync.Mutex
	cur atomic.Pointer[Settings]
}

func newSettingsStore(initial Settings) *settingsStore {
	s := &settingsStore{}
	snap := initial.clone()
	s.cur.Store(&snap)
	return s
}

// Load returns the current snapshot. Callers must not mutate the Symbols
// slice of the returned value.
func (s *settingsStore) Load() Settings {
	return *s.cur.Load()
}

// Update applies fn to a copy of the current settings and publishes the
// result as the new snapshot.
func (s *settingsStore) Update(fn func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cur.Load().clone()
	fn(&next)
	s.cur.Store(&next)
	return next
}
