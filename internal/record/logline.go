package record

import (
	"encoding/json"
	"strings"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityDebug   Severity = "debug"
)

// LogLine is one normalized daily-log line. Structured is false when the
// line was not valid JSON and the fields were guessed from the raw text.
type LogLine struct {
	Time       *time.Time `json:"time,omitempty"`
	Level      Severity   `json:"level"`
	Message    string     `json:"message"`
	Raw        string     `json:"raw"`
	Structured bool       `json:"structured"`
}

// Keyword table for classifying unstructured lines. Deliberately narrow:
// this is a fallback for plain-text log lines, not a general parser.
var severityKeywords = []struct {
	substr string
	level  Severity
}{
	{"Error", SeverityError},
	{"ERROR", SeverityError},
	{"failed", SeverityError},
	{"FATAL", SeverityError},
	{"WARN", SeverityWarning},
	{"Warning", SeverityWarning},
}

// ParseLogLine decodes one daily-log line. JSON lines use their time/level/
// msg fields (legacy spellings included); anything else falls back to
// keyword classification on the raw text. Never returns an error.
func ParseLogLine(line string) LogLine {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return LogLine{Level: SeverityInfo, Raw: line}
	}

	if trimmed[0] == '{' {
		var obj struct {
			Time         json.RawMessage `json:"time"`
			Level        string          `json:"level"`
			LogLevelName string          `json:"logLevelName"`
			Msg          string          `json:"msg"`
			Message      string          `json:"message"`
			Name         string          `json:"name"`
			Meta         *struct {
				Date json.RawMessage `json:"date"`
			} `json:"_meta"`
		}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			ts := ParseTimestamp(obj.Time)
			if ts == nil && obj.Meta != nil {
				ts = ParseTimestamp(obj.Meta.Date)
			}
			msg := obj.Msg
			if msg == "" {
				msg = obj.Message
			}
			if msg == "" {
				msg = obj.Name
			}
			return LogLine{
				Time:       ts,
				Level:      normalizeLevel(obj.Level, obj.LogLevelName),
				Message:    msg,
				Raw:        line,
				Structured: true,
			}
		}
	}

	return LogLine{
		Level:   classifyKeywords(trimmed),
		Message: trimmed,
		Raw:     line,
	}
}

func normalizeLevel(level, legacy string) Severity {
	s := level
	if s == "" {
		s = legacy
	}
	switch strings.ToLower(s) {
	case "error", "fatal":
		return SeverityError
	case "warn", "warning":
		return SeverityWarning
	case "debug", "trace":
		return SeverityDebug
	default:
		return SeverityInfo
	}
}

func classifyKeywords(s string) Severity {
	for _, kw := range severityKeywords {
		if strings.Contains(s, kw.substr) {
			return kw.level
		}
	}
	return SeverityInfo
}
