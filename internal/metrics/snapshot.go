package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshotFile is the on-disk layout. Underscored keys carry snapshot
// metadata so readers can tell a stale snapshot from a quiet agent.
type snapshotFile struct {
	SavedAt      time.Time          `json:"_saved_at"`
	LastReceived time.Time          `json:"_last_received"`
	Categories   map[string][]Entry `json:"categories"`
}

// Flush writes the snapshot atomically: serialize to a temp file in the
// target directory, then rename over the previous snapshot. A crash mid-
// write leaves the old snapshot intact. No-op while the store is clean.
func (s *Store) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := snapshotFile{
		SavedAt:      time.Now(),
		LastReceived: s.lastReceived,
		Categories:   make(map[string][]Entry, len(s.categories)),
	}
	for c, entries := range s.categories {
		snap.Categories[c] = append([]Entry(nil), entries...)
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metrics-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Load rehydrates the store from the snapshot on disk. A missing or corrupt
// snapshot leaves the store empty; ingestion starts fresh either way.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range Categories {
		entries := sortedByTime(snap.Categories[c])
		if over := len(entries) - s.cfg.MaxEntries; over > 0 {
			entries = entries[over:]
		}
		s.categories[c] = entries
	}
	s.lastReceived = snap.LastReceived
	s.dirty = false
	return nil
}
