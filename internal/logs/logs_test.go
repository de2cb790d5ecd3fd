package logs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openclaw/clawmetry/internal/record"
)

func TestDayPath(t *testing.T) {
	day := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	got := DayPath("/tmp/openclaw", day)
	want := filepath.Join("/tmp/openclaw", "openclaw-2026-08-30.log")
	if got != want {
		t.Errorf("DayPath = %q, want %q", got, want)
	}
}

func TestTail(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	content := `{"time":"2026-08-30T10:00:00Z","level":"info","msg":"started"}
plain text line
{"time":"2026-08-30T10:00:02Z","level":"error","msg":"request failed"}
`
	if err := os.WriteFile(DayPath(dir, day), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	lines, err := Tail(dir, day, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Structured || lines[0].Message != "plain text line" {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if lines[1].Level != record.SeverityError || lines[1].Message != "request failed" {
		t.Errorf("line 1 = %+v", lines[1])
	}
}

func TestTailMissingFile(t *testing.T) {
	lines, err := Tail(t.TempDir(), time.Now(), 50)
	if err != nil {
		t.Fatalf("missing log should not error, got %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %v, want none", lines)
	}
}

func TestDays(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"openclaw-2026-08-28.log",
		"openclaw-2026-08-30.log",
		"openclaw-2026-08-29.log",
		"other.log",
		"openclaw-garbage.log",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	days := Days(dir)
	want := []string{"2026-08-30", "2026-08-29", "2026-08-28"}
	if len(days) != len(want) {
		t.Fatalf("got %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("days[%d] = %q, want %q", i, days[i], want[i])
		}
	}
}
