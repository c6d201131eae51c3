// Package history remembers recent evaluations per conversation on disk.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/entrhq/threadsweep/pkg/evaluation"
	"github.com/entrhq/threadsweep/pkg/logging"
	"github.com/entrhq/threadsweep/pkg/page"
)

// MaxEntries is how many conversations are remembered.
const MaxEntries = 50

// Entry is the last evaluation of one conversation.
type Entry struct {
	Identity   page.Identity         `json:"thread_id"`
	Evaluation evaluation.Evaluation `json:"analysis"`
	Timestamp  time.Time             `json:"timestamp"`
}

type fileFormat struct {
	Version string  `json:"version"`
	Entries []Entry `json:"entries"`
	Pending *Entry  `json:"pending_shortcut,omitempty"`
}

// Store is a bounded, persisted map from conversation identity to its latest
// evaluation. Entries are evicted by least recent update; reads never change
// recency. All methods are safe for concurrent use.
type Store struct {
	path   string
	clock  clockwork.Clock
	logger *logging.Logger

	mu      sync.Mutex
	entries *lru.Cache[page.Identity, Entry]
	pending *Entry
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// DefaultPath returns ~/.threadsweep/history.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".threadsweep", "history.json"), nil
}

// Open loads the store at path, or DefaultPath when path is empty.
// A missing file yields an empty store.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cache, err := lru.New[page.Identity, Entry](MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create history cache: %w", err)
	}
	s := &Store{
		path:    path,
		clock:   clockwork.NewRealClock(),
		logger:  logging.Nop(),
		entries: cache,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Save records eval as the latest evaluation of id and persists the store.
func (s *Store) Save(id page.Identity, eval evaluation.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries.Add(id, Entry{Identity: id, Evaluation: eval, Timestamp: s.clock.Now()})
	return s.persistLocked()
}

// Get returns the entry for id without affecting eviction order.
func (s *Store) Get(id page.Identity) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Peek(id)
}

// List returns every entry, most recently updated first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

// Len returns the number of remembered conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries.Len()
}

// Remove forgets id.
func (s *Store) Remove(id page.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.entries.Remove(id) {
		return nil
	}
	return s.persistLocked()
}

// Clear forgets every entry and the pending result.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Purge()
	s.pending = nil
	return s.persistLocked()
}

// SetPending stores a result produced outside the popup for id. It replaces
// any earlier pending result.
func (s *Store) SetPending(id page.Identity, eval evaluation.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &Entry{Identity: id, Evaluation: eval, Timestamp: s.clock.Now()}
	return s.persistLocked()
}

// TakePending returns and clears the pending result when it belongs to id.
// A pending result for another conversation is left in place.
func (s *Store) TakePending(id page.Identity) (evaluation.Evaluation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.Identity != id {
		return evaluation.Evaluation{}, false, nil
	}
	eval := s.pending.Evaluation
	s.pending = nil
	return eval, true, s.persistLocked()
}

func (s *Store) listLocked() []Entry {
	keys := s.entries.Keys()
	out := make([]Entry, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if e, ok := s.entries.Peek(keys[i]); ok {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read history: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to decode history %s: %w", s.path, err)
	}

	// Newest first, then added in reverse so the newest is most recent in the cache.
	sort.SliceStable(f.Entries, func(i, j int) bool {
		return f.Entries[i].Timestamp.After(f.Entries[j].Timestamp)
	})
	for i := len(f.Entries) - 1; i >= 0; i-- {
		s.entries.Add(f.Entries[i].Identity, f.Entries[i])
	}
	s.pending = f.Pending
	s.logger.Debugf("loaded %d history entries from %s", s.entries.Len(), s.path)
	return nil
}

// persistLocked writes the store through a temp file and rename.
func (s *Store) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(fileFormat{
		Version: "1.0",
		Entries: s.listLocked(),
		Pending: s.pending,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
