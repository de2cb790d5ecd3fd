// Package subagent reads the agent-owned session index and transcripts and
// derives per-session lifecycle views. The index is the source of truth for
// which sessions exist; transcripts only add activity detail, so a missing
// transcript degrades the view instead of hiding the session.
package subagent

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/clawmetry/internal/config"
	"github.com/openclaw/clawmetry/internal/record"
	"github.com/openclaw/clawmetry/internal/tail"
)

// View is the dashboard-facing projection of one sub-agent session.
type View struct {
	Key          string     `json:"key"`
	SessionID    string     `json:"sessionId"`
	DisplayName  string     `json:"displayName"`
	Model        string     `json:"model,omitempty"`
	Channel      string     `json:"channel,omitempty"`
	Status       Status     `json:"status"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	AgeSeconds   int64      `json:"ageSeconds"`
	RuntimeMs    int64      `json:"runtimeMs"`
	TotalTokens  int64      `json:"totalTokens"`
	OutputTokens int64      `json:"outputTokens"`
	RealFailure  bool       `json:"realFailure"`
	SpawnedBy    string     `json:"spawnedBy,omitempty"`
	LastText     string     `json:"lastText,omitempty"`
	RecentTools  []ToolCall `json:"recentTools,omitempty"`
}

// Summary aggregates view counts for the overview card.
type Summary struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Idle         int `json:"idle"`
	Stale        int `json:"stale"`
	RealFailures int `json:"realFailures"`
}

// IsRealFailure reports whether an entry shows the real-failure conjunction:
// a stale session whose last run was aborted before it produced any output.
// Stale-but-completed sessions are normal terminations, not failures.
func IsRealFailure(e Entry, status Status) bool {
	return status == Stale && e.AbortedLastRun && e.OutputTokens == 0
}

// Reader builds sub-agent views from the on-disk index and transcripts.
type Reader struct {
	cfg *config.Config
}

func NewReader(cfg *config.Config) *Reader {
	return &Reader{cfg: cfg}
}

// Views loads the index and builds one view per sub-agent entry, newest
// first. Per-session read failures degrade that session's activity fields
// and never fail the listing.
func (r *Reader) Views(now time.Time) ([]View, Summary) {
	index := LoadIndex(r.cfg.Paths.IndexFile)
	entries := Subagents(index)

	views := make([]View, 0, len(entries))
	var summary Summary
	for _, e := range entries {
		v := r.buildView(e, now)
		switch v.Status {
		case Active:
			summary.Active++
		case Idle:
			summary.Idle++
		case Stale:
			summary.Stale++
		}
		if v.RealFailure {
			summary.RealFailures++
		}
		views = append(views, v)
	}
	summary.Total = len(views)

	sort.Slice(views, func(i, j int) bool {
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return views, summary
}

// MainView builds the view for the agent's main session. The second return
// is false when the index has no main entry.
func (r *Reader) MainView(now time.Time) (View, bool) {
	entry, ok := Main(LoadIndex(r.cfg.Paths.IndexFile))
	if !ok {
		return View{}, false
	}
	return r.buildView(entry, now), true
}

// Timeline returns the full activity timeline for one sub-agent key. The
// second return is false when the key is not in the index.
func (r *Reader) Timeline(key string) ([]Event, bool) {
	index := LoadIndex(r.cfg.Paths.IndexFile)
	entry, ok := index[key]
	if !ok || !entry.IsSubagent() {
		return nil, false
	}
	return BuildTimeline(r.readRecords(entry, r.cfg.Monitor.UsageTailSize)), true
}

func (r *Reader) buildView(e Entry, now time.Time) View {
	updated := e.UpdatedTime()
	status := ClassifyStatus(updated, now, r.cfg.Monitor.ActiveWindow, r.cfg.Monitor.IdleWindow)

	v := View{
		Key:          e.Key,
		SessionID:    e.SessionID,
		Model:        e.Model,
		Channel:      e.Channel,
		Status:       status,
		UpdatedAt:    updated,
		TotalTokens:  e.TotalTokens,
		OutputTokens: e.OutputTokens,
		RealFailure:  IsRealFailure(e, status),
		SpawnedBy:    e.SpawnedBy,
	}
	if !updated.IsZero() {
		v.AgeSeconds = int64(now.Sub(updated).Seconds())
	}

	events := BuildTimeline(r.readRecords(e, r.cfg.Monitor.PreviewTailSize))
	v.LastText = LastText(events)
	v.RecentTools = RecentTools(events, r.cfg.Monitor.RecentTools)
	v.DisplayName = r.displayName(e, events)
	v.RuntimeMs = runtimeMs(events, updated)
	return v
}

// runtimeMs estimates the session's run duration from the earliest event in
// the preview window to the last update. A long session whose start scrolled
// out of the window reads low rather than wrong.
func runtimeMs(events []Event, updated time.Time) int64 {
	if updated.IsZero() {
		return 0
	}
	for _, e := range events {
		if e.Timestamp == nil {
			continue
		}
		if d := updated.Sub(*e.Timestamp); d > 0 {
			return d.Milliseconds()
		}
		return 0
	}
	return 0
}

func (r *Reader) readRecords(e Entry, maxBytes int64) []record.TranscriptRecord {
	if e.SessionID == "" {
		return nil
	}
	lines, err := tail.Lines(r.transcriptPath(e), maxBytes)
	if err != nil {
		return nil
	}
	records := make([]record.TranscriptRecord, 0, len(lines))
	for _, line := range lines {
		if rec, ok := record.ParseTranscriptLine([]byte(line)); ok {
			records = append(records, rec)
		}
	}
	return records
}

func (r *Reader) transcriptPath(e Entry) string {
	return filepath.Join(r.cfg.Paths.SessionsDir, e.SessionID+".jsonl")
}

const maxDisplayName = 60

// displayName prefers the index label, then the session's opening user
// message, then a shortened form of the key.
func (r *Reader) displayName(e Entry, events []Event) string {
	if e.Label != "" {
		return truncate(e.Label, maxDisplayName)
	}
	if first := FirstUserText(events); first != "" {
		return truncate(firstLine(first), maxDisplayName)
	}
	// The preview tail may have scrolled past the opening message; read a
	// few lines from the head before falling back to the raw key.
	if head, err := tail.Head(r.transcriptPath(e), 10); err == nil {
		var recs []record.TranscriptRecord
		for _, line := range head {
			if rec, ok := record.ParseTranscriptLine([]byte(line)); ok {
				recs = append(recs, rec)
			}
		}
		if first := FirstUserText(BuildTimeline(recs)); first != "" {
			return truncate(firstLine(first), maxDisplayName)
		}
	}
	return shortKey(e.Key)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// shortKey renders "<agent>:subagent:<uuid>" as "<agent>/<uuid-prefix>".
func shortKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) >= 3 {
		id := parts[len(parts)-1]
		if len(id) > 8 {
			id = id[:8]
		}
		return fmt.Sprintf("%s/%s", parts[0], id)
	}
	return key
}
