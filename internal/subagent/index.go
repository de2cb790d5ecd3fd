package subagent

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/openclaw/clawmetry/internal/record"
)

// Entry is one row of the agent-owned session index. The index is the
// authoritative enumeration of sessions; transcripts are only consulted
// for activity detail.
type Entry struct {
	Key            string `json:"key"`
	SessionID      string `json:"sessionId"`
	Model          string `json:"model,omitempty"`
	Channel        string `json:"channel,omitempty"`
	UpdatedAt      int64  `json:"updatedAt"`
	Label          string `json:"label,omitempty"`
	TotalTokens    int64  `json:"totalTokens"`
	OutputTokens   int64  `json:"outputTokens"`
	AbortedLastRun bool   `json:"abortedLastRun"`
	SpawnedBy      string `json:"spawnedBy,omitempty"`
}

// UpdatedTime converts the epoch-milliseconds UpdatedAt field.
func (e Entry) UpdatedTime() time.Time {
	return record.EpochMillis(e.UpdatedAt)
}

// IsSubagent reports whether the key follows the sub-agent naming
// convention (<agent>:subagent:<uuid>).
func (e Entry) IsSubagent() bool {
	return strings.Contains(e.Key, ":subagent:")
}

// IsMain reports whether the key names an agent's main session.
func (e Entry) IsMain() bool {
	return strings.HasSuffix(e.Key, ":main")
}

// LoadIndex reads the session index file into a key → Entry map. The file
// is loaded fresh on every request; an absent or unreadable index yields an
// empty map so downstream views degrade to "no sub-agents" instead of
// failing the request.
func LoadIndex(path string) map[string]Entry {
	data, err := os.ReadFile(path)
	if err != nil {
		return map[string]Entry{}
	}

	var raw map[string]Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]Entry{}
	}

	out := make(map[string]Entry, len(raw))
	for key, entry := range raw {
		if entry.Key == "" {
			entry.Key = key
		}
		out[key] = entry
	}
	return out
}

// Subagents filters an index down to sub-agent entries.
func Subagents(index map[string]Entry) []Entry {
	var entries []Entry
	for _, e := range index {
		if e.IsSubagent() {
			entries = append(entries, e)
		}
	}
	return entries
}

// Main returns the main-session entry from an index, if present.
func Main(index map[string]Entry) (Entry, bool) {
	for _, e := range index {
		if e.IsMain() {
			return e, true
		}
	}
	return Entry{}, false
}
