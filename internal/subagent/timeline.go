package subagent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/openclaw/clawmetry/internal/record"
)

// EventType discriminates timeline entries built from transcript records.
type EventType string

const (
	EventToolCall        EventType = "tool_call"
	EventToolResult      EventType = "tool_result"
	EventThinking        EventType = "thinking"
	EventInternalThought EventType = "internal_thought"
	EventModelChange     EventType = "model_change"
	EventUser            EventType = "user"
	EventAgent           EventType = "agent"
	EventResult          EventType = "result"
)

// Event is one entry of a session's activity timeline, in transcript order.
type Event struct {
	Type      EventType  `json:"type"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Tool      string     `json:"tool,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Text      string     `json:"text,omitempty"`
	Model     string     `json:"model,omitempty"`
	IsError   bool       `json:"isError,omitempty"`
}

const maxEventText = 500

// BuildTimeline folds transcript records into timeline events, preserving
// line order. One record can yield several events (an assistant turn with
// thinking, text, and tool calls emits one event per block).
func BuildTimeline(records []record.TranscriptRecord) []Event {
	var events []Event
	for _, rec := range records {
		ts := rec.Time()
		switch rec.Type {
		case "model_change":
			events = append(events, Event{Type: EventModelChange, Timestamp: ts, Model: rec.Model})
			continue
		case "result":
			events = append(events, Event{Type: EventResult, Timestamp: ts, Text: truncate(rec.ResultText(), maxEventText)})
			continue
		}
		if rec.Message == nil {
			continue
		}
		events = append(events, messageEvents(rec.Message, ts)...)
	}
	return events
}

func messageEvents(msg *record.Message, ts *time.Time) []Event {
	var events []Event
	role := msg.Role
	for _, block := range msg.Blocks() {
		switch block.Kind() {
		case record.BlockText:
			text := strings.TrimSpace(block.Text)
			if text == "" {
				continue
			}
			t := EventAgent
			if role == "user" {
				t = EventUser
			}
			events = append(events, Event{Type: t, Timestamp: ts, Text: truncate(text, maxEventText)})
		case record.BlockThinking:
			// A thinking block on a non-assistant record is the agent's
			// relayed inner monologue, shown under a distinct type.
			t := EventThinking
			if role != "assistant" {
				t = EventInternalThought
			}
			events = append(events, Event{Type: t, Timestamp: ts, Text: truncate(block.Thinking, maxEventText)})
		case record.BlockToolUse:
			events = append(events, Event{
				Type:      EventToolCall,
				Timestamp: ts,
				Tool:      block.Name,
				Summary:   SummarizeTool(block.Name, block.Input),
			})
		case record.BlockToolResult:
			events = append(events, Event{
				Type:      EventToolResult,
				Timestamp: ts,
				Text:      truncate(block.ResultText(), maxEventText),
				IsError:   block.IsError,
			})
		}
	}
	return events
}

// ToolCall is one recent tool invocation, newest first.
type ToolCall struct {
	Tool      string     `json:"tool"`
	Summary   string     `json:"summary"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RecentTools scans the timeline backward and returns up to k tool calls,
// most recent first.
func RecentTools(events []Event, k int) []ToolCall {
	var calls []ToolCall
	for i := len(events) - 1; i >= 0 && len(calls) < k; i-- {
		if events[i].Type != EventToolCall {
			continue
		}
		calls = append(calls, ToolCall{
			Tool:      events[i].Tool,
			Summary:   events[i].Summary,
			Timestamp: events[i].Timestamp,
		})
	}
	return calls
}

// LastText returns the most recent agent-authored text in the timeline,
// preferring final results over intermediate turns.
func LastText(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Type {
		case EventResult, EventAgent:
			if events[i].Text != "" {
				return events[i].Text
			}
		}
	}
	return ""
}

// FirstUserText returns the opening user message, used as a display-name
// fallback when the index entry carries no label.
func FirstUserText(events []Event) string {
	for _, e := range events {
		if e.Type == EventUser && e.Text != "" {
			return e.Text
		}
	}
	return ""
}

const maxToolSummary = 120

// SummarizeTool renders a one-line summary of a tool invocation from its
// input payload. Exec-style tools show the command, file tools the path,
// search tools the query; anything else falls back to compact JSON.
func SummarizeTool(name string, input json.RawMessage) string {
	var args map[string]any
	if len(input) > 0 {
		_ = json.Unmarshal(input, &args)
	}

	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "exec", "bash", "shell", "process"):
		if s := stringArg(args, "command", "cmd"); s != "" {
			return truncate(s, maxToolSummary)
		}
	case containsAny(lower, "read", "write", "edit", "file"):
		if s := stringArg(args, "path", "file_path", "filePath", "file"); s != "" {
			return truncate(s, maxToolSummary)
		}
	case containsAny(lower, "search", "fetch", "browse", "web"):
		if s := stringArg(args, "query", "url", "pattern"); s != "" {
			return truncate(s, maxToolSummary)
		}
	case lower == "message" || lower == "sessions_send":
		if s := stringArg(args, "message", "text", "content"); s != "" {
			return truncate(s, maxToolSummary)
		}
	}

	if len(args) == 0 {
		return ""
	}
	compact, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return truncate(string(compact), maxToolSummary)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stringArg(args map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := args[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	// Avoid splitting a multi-byte rune at the boundary.
	for len(cut) > 0 && cut[len(cut)-1]&0xC0 == 0x80 {
		cut = cut[:len(cut)-1]
	}
	return cut + "…"
}
