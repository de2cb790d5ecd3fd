package metrics

import (
	"testing"
	"time"
)

func TestUsageSamplesRollup(t *testing.T) {
	s := testStore(t)
	day := time.Date(2026, 8, 29, 9, 0, 0, 0, time.Local)

	// Token and cost points for the same day and model must land in one
	// sample so the cost is not estimated on top of the reported one.
	s.Append(CategoryTokens, Entry{Time: day, Value: 1000, Model: "claude-opus-4-5"})
	s.Append(CategoryTokens, Entry{Time: day.Add(time.Hour), Value: 500, Model: "claude-opus-4-5"})
	s.Append(CategoryCost, Entry{Time: day.Add(2 * time.Hour), Value: 0.75, Model: "claude-opus-4-5"})
	s.Append(CategoryMessages, Entry{Time: day, Value: 3, Model: "claude-opus-4-5"})

	// A different model on the same day stays separate.
	s.Append(CategoryTokens, Entry{Time: day, Value: 200, Model: "claude-haiku-4-5"})

	samples := s.UsageSamples()
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2: %+v", len(samples), samples)
	}

	for _, sm := range samples {
		switch sm.Model {
		case "claude-opus-4-5":
			if sm.Total != 1500 || sm.Cost != 0.75 || sm.Messages != 3 {
				t.Errorf("opus sample = %+v", sm)
			}
		case "claude-haiku-4-5":
			if sm.Total != 200 || sm.Cost != 0 {
				t.Errorf("haiku sample = %+v", sm)
			}
		default:
			t.Errorf("unexpected model %q", sm.Model)
		}
	}
}
