package record

import (
	"testing"
	"time"
)

func TestParseTranscriptLine(t *testing.T) {
	line := `{"type":"message","timestamp":"2026-08-29T10:00:01.000Z","message":{"role":"assistant","model":"claude-opus-4-5","content":[{"type":"text","text":"done"}],"usage":{"input_tokens":100,"output_tokens":50,"cache_read_input_tokens":2000}}}`

	rec, ok := ParseTranscriptLine([]byte(line))
	if !ok {
		t.Fatal("expected line to parse")
	}
	if rec.Type != "message" {
		t.Errorf("type = %q, want message", rec.Type)
	}
	if rec.Message == nil || rec.Message.Usage == nil {
		t.Fatal("expected message with usage")
	}

	u := rec.Message.Usage
	if u.Input != 100 || u.Output != 50 || u.CacheRead != 2000 {
		t.Errorf("usage = %+v, want input 100 output 50 cacheRead 2000", u)
	}
	if u.Total != 2150 {
		t.Errorf("total = %d, want component sum 2150", u.Total)
	}

	ts := rec.Time()
	if ts == nil {
		t.Fatal("expected timestamp")
	}
	want := time.Date(2026, 8, 29, 10, 0, 1, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("time = %v, want %v", ts, want)
	}
}

func TestParseTranscriptLineLegacySpellings(t *testing.T) {
	line := `{"type":"message","message":{"role":"assistant","usage":{"input":10,"output":20,"cacheRead":30,"cacheWrite":40,"totalTokens":100,"cost":{"total":0.05}}}}`

	rec, ok := ParseTranscriptLine([]byte(line))
	if !ok {
		t.Fatal("expected line to parse")
	}
	u := rec.Message.Usage
	if u.Input != 10 || u.Output != 20 || u.CacheRead != 30 || u.CacheWrite != 40 {
		t.Errorf("usage = %+v, want legacy fields folded", u)
	}
	if u.Total != 100 {
		t.Errorf("total = %d, want explicit 100", u.Total)
	}
	if u.Cost != 0.05 {
		t.Errorf("cost = %v, want 0.05", u.Cost)
	}
}

func TestParseTranscriptLineMalformed(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"not json",
		`{"type":"message"`,
		`[1,2,3]`,
	}
	for _, line := range lines {
		if _, ok := ParseTranscriptLine([]byte(line)); ok {
			t.Errorf("ParseTranscriptLine(%q) parsed, want skip", line)
		}
	}
}

func TestMessageBlocksStringContent(t *testing.T) {
	line := `{"type":"message","message":{"role":"user","content":"plain text"}}`
	rec, ok := ParseTranscriptLine([]byte(line))
	if !ok {
		t.Fatal("expected line to parse")
	}
	blocks := rec.Message.Blocks()
	if len(blocks) != 1 || blocks[0].Kind() != BlockText || blocks[0].Text != "plain text" {
		t.Errorf("blocks = %+v, want single text block", blocks)
	}
}

func TestContentBlockKindLegacy(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"tool_use", BlockToolUse},
		{"toolCall", BlockToolUse},
		{"tool_result", BlockToolResult},
		{"toolResult", BlockToolResult},
		{"text", BlockText},
		{"thinking", BlockThinking},
	}
	for _, tt := range tests {
		got := ContentBlock{Type: tt.typ}.Kind()
		if got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestParseTimestampEpoch(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		// Milliseconds (above the cutoff).
		{"1756500000000", time.UnixMilli(1756500000000)},
		// Seconds (below the cutoff).
		{"1756500000", time.Unix(1756500000, 0)},
		{`"2026-08-29T10:00:00Z"`, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
		{`"2026-08-29 10:00:00"`, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ParseTimestamp([]byte(tt.raw))
		if got == nil {
			t.Errorf("ParseTimestamp(%s) = nil, want %v", tt.raw, tt.want)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	for _, raw := range []string{"", "0", "-5", `"garbage"`, "null"} {
		if got := ParseTimestamp([]byte(raw)); got != nil {
			t.Errorf("ParseTimestamp(%s) = %v, want nil", raw, got)
		}
	}
}

func TestParseLogLineStructured(t *testing.T) {
	line := `{"time":"2026-08-29T10:00:00Z","level":"warn","msg":"queue backlog"}`
	got := ParseLogLine(line)
	if !got.Structured {
		t.Error("expected structured line")
	}
	if got.Level != SeverityWarning {
		t.Errorf("level = %q, want warning", got.Level)
	}
	if got.Message != "queue backlog" {
		t.Errorf("message = %q, want queue backlog", got.Message)
	}
	if got.Time == nil {
		t.Error("expected parsed time")
	}
}

func TestParseLogLineKeywordFallback(t *testing.T) {
	tests := []struct {
		line string
		want Severity
	}{
		{"request failed: connection refused", SeverityError},
		{"[WARN] slow response", SeverityWarning},
		{"everything is fine", SeverityInfo},
		{"FATAL: out of memory", SeverityError},
	}
	for _, tt := range tests {
		got := ParseLogLine(tt.line)
		if got.Structured {
			t.Errorf("ParseLogLine(%q) structured, want fallback", tt.line)
		}
		if got.Level != tt.want {
			t.Errorf("ParseLogLine(%q).Level = %q, want %q", tt.line, got.Level, tt.want)
		}
	}
}
