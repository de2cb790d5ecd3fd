// Package metrics keeps pushed agent metrics in bounded in-memory rings,
// one per category, and persists them to a JSON snapshot so short restarts
// do not lose the usage history.
package metrics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/openclaw/clawmetry/internal/config"
)

// The fixed set of ingestable categories. Points outside this set are
// dropped at ingest time.
const (
	CategoryTokens   = "tokens"
	CategoryCost     = "cost"
	CategoryRuns     = "runs"
	CategoryMessages = "messages"
	CategoryWebhooks = "webhooks"
)

var Categories = []string{
	CategoryTokens,
	CategoryCost,
	CategoryRuns,
	CategoryMessages,
	CategoryWebhooks,
}

// Entry is one ingested metric point.
type Entry struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Model    string    `json:"model,omitempty"`
	Channel  string    `json:"channel,omitempty"`
	Provider string    `json:"provider,omitempty"`
}

// Store holds bounded per-category entry lists behind one mutex. All writes
// go through Append; readers get copies so they never race the sweeper.
type Store struct {
	cfg  config.MetricsConfig
	path string

	mu           sync.Mutex
	categories   map[string][]Entry
	lastReceived time.Time
	dirty        bool
}

func NewStore(cfg *config.Config) *Store {
	s := &Store{
		cfg:        cfg.Metrics,
		path:       cfg.Paths.SnapshotFile,
		categories: make(map[string][]Entry, len(Categories)),
	}
	for _, c := range Categories {
		s.categories[c] = nil
	}
	return s
}

// Append records one entry, evicting the oldest entries when the category
// exceeds its cap. Unknown categories are rejected.
func (s *Store) Append(category string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.categories[category]
	if !ok {
		return fmt.Errorf("unknown metric category %q", category)
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	entries = append(entries, e)
	if over := len(entries) - s.cfg.MaxEntries; over > 0 {
		entries = append(entries[:0:0], entries[over:]...)
	}
	s.categories[category] = entries

	if e.Time.After(s.lastReceived) {
		s.lastReceived = e.Time
	}
	s.dirty = true
	return nil
}

// Entries returns a copy of one category's entries in insertion order.
func (s *Store) Entries(category string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.categories[category]...)
}

// Counts returns the current per-category entry counts.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.categories))
	for c, entries := range s.categories {
		counts[c] = len(entries)
	}
	return counts
}

// LastReceived is the timestamp of the newest entry ever appended, including
// entries rehydrated from a snapshot.
func (s *Store) LastReceived() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReceived
}

// Fresh reports whether metrics arrived recently enough that pushed data
// should be preferred over transcript scans.
func (s *Store) Fresh(now time.Time) bool {
	last := s.LastReceived()
	return !last.IsZero() && now.Sub(last) < s.cfg.FreshThreshold
}

// Sweep drops entries older than the retention horizon. Returns the number
// of entries removed.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.cfg.Retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for c, entries := range s.categories {
		kept := entries[:0]
		for _, e := range entries {
			if e.Time.After(cutoff) {
				kept = append(kept, e)
			}
		}
		removed += len(entries) - len(kept)
		s.categories[c] = append([]Entry(nil), kept...)
	}
	if removed > 0 {
		s.dirty = true
	}
	return removed
}

// Run sweeps and flushes on the configured interval until ctx is done,
// flushing one final time on the way out. Flush failures are logged and
// retried on the next tick.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := s.Flush(); err != nil {
				log.Printf("metrics: final snapshot failed: %v", err)
			}
			return
		case now := <-ticker.C:
			s.Sweep(now)
			if err := s.Flush(); err != nil {
				log.Printf("metrics: snapshot failed: %v", err)
			}
		}
	}
}

func sortedByTime(entries []Entry) []Entry {
	out := append([]Entry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
