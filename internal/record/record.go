// Package record decodes single lines of agent-owned transcript and log
// files into normalized records. Parsing is strictly best-effort: a
// malformed line degrades to an unstructured record instead of failing
// the batch it came from.
package record

import (
	"encoding/json"
	"strings"
	"time"
)

// TranscriptRecord is one line of a session's append-only JSONL transcript.
// The Type field discriminates record kinds ("message", "model_change", ...).
type TranscriptRecord struct {
	Type      string          `json:"type"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Message   *Message        `json:"message,omitempty"`
	Model     string          `json:"model,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// Time returns the record's timestamp, or nil when absent or unparseable.
// The record itself stays usable either way.
func (r *TranscriptRecord) Time() *time.Time {
	return ParseTimestamp(r.Timestamp)
}

// ResultText renders a result record's payload as display text. Results are
// usually plain strings but some writers emit structured objects.
func (r *TranscriptRecord) ResultText() string {
	return rawText(r.Result)
}

type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *Usage          `json:"usage,omitempty"`
	Model   string          `json:"model,omitempty"`
}

// Blocks normalizes message content into ordered content blocks. A flat
// string becomes a single text block; block order is preserved because the
// blocks encode the causal narrative order of the turn.
func (m *Message) Blocks() []ContentBlock {
	if m == nil || len(m.Content) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		if s == "" {
			return nil
		}
		return []ContentBlock{{Type: "text", Text: s}}
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil
	}
	return blocks
}

// ContentBlock is one typed element of a message's content sequence.
// Both current and legacy type spellings appear in the wild; Kind folds
// them to a canonical name.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Name      string          `json:"name,omitempty"`
	ToolUseID string          `json:"id,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Kind maps legacy block type spellings onto one canonical name.
func (b ContentBlock) Kind() string {
	switch b.Type {
	case "tool_use", "toolCall":
		return BlockToolUse
	case "tool_result", "toolResult":
		return BlockToolResult
	default:
		return b.Type
	}
}

// ResultText renders a tool_result block's content as display text. Nested
// text blocks are joined; anything else is shown as compact JSON.
func (b ContentBlock) ResultText() string {
	if s := rawText(b.Content); s != "" {
		return s
	}
	return ""
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var nested []ContentBlock
	if err := json.Unmarshal(raw, &nested); err == nil {
		var parts []string
		for _, b := range nested {
			if b.Kind() == BlockText && strings.TrimSpace(b.Text) != "" {
				parts = append(parts, strings.TrimSpace(b.Text))
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}

	return string(raw)
}

// Usage carries per-message token counts and cost. Legacy transcripts spell
// the token fields several ways; UnmarshalJSON folds each spelling to one
// canonical field.
type Usage struct {
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
	Total      int64
	Cost       float64
}

func (u *Usage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Input       int64 `json:"input"`
		InputTokens int64 `json:"input_tokens"`

		Output       int64 `json:"output"`
		OutputTokens int64 `json:"output_tokens"`

		CacheRead            int64 `json:"cacheRead"`
		CacheReadInputTokens int64 `json:"cache_read_input_tokens"`

		CacheWrite               int64 `json:"cacheWrite"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`

		TotalTokens int64 `json:"totalTokens"`

		Cost *struct {
			Total float64 `json:"total"`
		} `json:"cost,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.Input = pick64(raw.Input, raw.InputTokens)
	u.Output = pick64(raw.Output, raw.OutputTokens)
	u.CacheRead = pick64(raw.CacheRead, raw.CacheReadInputTokens)
	u.CacheWrite = pick64(raw.CacheWrite, raw.CacheCreationInputTokens)
	u.Total = raw.TotalTokens
	if u.Total == 0 {
		u.Total = u.Input + u.Output + u.CacheRead + u.CacheWrite
	}
	if raw.Cost != nil {
		u.Cost = raw.Cost.Total
	}
	return nil
}

func pick64(a, b int64) int64 {
	if a != 0 {
		return a
	}
	return b
}

// ParseTranscriptLine decodes one transcript line. ok is false for blank or
// malformed lines; callers skip those and continue with the next line.
func ParseTranscriptLine(line []byte) (TranscriptRecord, bool) {
	trimmed := strings.TrimSpace(string(line))
	if trimmed == "" || trimmed[0] != '{' {
		return TranscriptRecord{}, false
	}
	var rec TranscriptRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return TranscriptRecord{}, false
	}
	return rec, true
}
