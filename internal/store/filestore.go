package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DefaultHistoryFile is the default on-disk location of the history map.
const DefaultHistoryFile = "results_cache/results_history.json"

// FileStore persists history as a single JSON file holding a flat
// key -> entry map. Writes within one process are serialized; across
// processes the last writer wins, as there is no file locking.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore at path. An empty path uses
// DefaultHistoryFile. The file is created lazily on first save.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultHistoryFile
	}
	return &FileStore{path: path}
}

// Save adds or replaces the entry under its cache key.
func (s *FileStore) Save(_ context.Context, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load()
	history[entry.CacheKey] = entry
	return s.write(history)
}

// Get returns the entry for a cache key, or (nil, nil) when absent.
func (s *FileStore) Get(_ context.Context, cacheKey string) (*CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()[cacheKey], nil
}

// List returns history summaries, newest first.
func (s *FileStore) List(_ context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load()
	summaries := make([]Summary, 0, len(history))
	for _, entry := range history {
		summaries = append(summaries, summarize(entry))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	return summaries, nil
}

// Delete removes one entry, reporting whether it existed.
func (s *FileStore) Delete(_ context.Context, cacheKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.load()
	if _, ok := history[cacheKey]; !ok {
		return false, nil
	}
	delete(history, cacheKey)
	return true, s.write(history)
}

// Clear removes all entries and returns how many were deleted.
func (s *FileStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.load())
	return count, s.write(map[string]*CacheEntry{})
}

// Close is a no-op for the file store.
func (s *FileStore) Close() {}

// load reads the history map. A missing or unreadable file is treated as an
// empty history.
func (s *FileStore) load() map[string]*CacheEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]*CacheEntry{}
	}

	var history map[string]*CacheEntry
	if err := json.Unmarshal(data, &history); err != nil || history == nil {
		return map[string]*CacheEntry{}
	}
	return history
}

func (s *FileStore) write(history map[string]*CacheEntry) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}
