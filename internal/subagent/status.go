package subagent

import (
	"encoding/json"
	"time"
)

// Status is the recency-derived lifecycle classification of a session.
type Status int

const (
	Active Status = iota
	Idle
	Stale
)

var statusNames = map[Status]string{
	Active: "active",
	Idle:   "idle",
	Stale:  "stale",
}

var statusFromName = map[string]Status{
	"active": Active,
	"idle":   Idle,
	"stale":  Stale,
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	if v, ok := statusFromName[name]; ok {
		*s = v
	}
	return nil
}

// ClassifyStatus derives the lifecycle status from the entry's last update
// time. Boundaries are inclusive of the lower state: exactly activeWindow
// old is idle, exactly idleWindow old is stale.
func ClassifyStatus(updatedAt, now time.Time, activeWindow, idleWindow time.Duration) Status {
	if updatedAt.IsZero() {
		return Stale
	}
	age := now.Sub(updatedAt)
	switch {
	case age < activeWindow:
		return Active
	case age < idleWindow:
		return Idle
	default:
		return Stale
	}
}
