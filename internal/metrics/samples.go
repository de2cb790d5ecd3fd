package metrics

import (
	"time"

	"github.com/openclaw/clawmetry/internal/usage"
)

// UsageSamples converts the token, cost, and message categories into daily
// usage samples. Entries are rolled up per day and model first so token and
// cost points describing the same activity land in one sample instead of
// being costed twice.
func (s *Store) UsageSamples() []usage.Sample {
	type key struct {
		day   string
		model string
	}

	rollup := map[key]*usage.Sample{}
	get := func(t time.Time, model string) *usage.Sample {
		day := t.Local().Format("2006-01-02")
		k := key{day: day, model: model}
		sm, ok := rollup[k]
		if !ok {
			dayStart, _ := time.ParseInLocation("2006-01-02", day, time.Local)
			sm = &usage.Sample{Time: dayStart.Add(12 * time.Hour), Model: model}
			rollup[k] = sm
		}
		return sm
	}

	for _, e := range s.Entries(CategoryTokens) {
		get(e.Time, e.Model).Total += int64(e.Value)
	}
	for _, e := range s.Entries(CategoryCost) {
		get(e.Time, e.Model).Cost += e.Value
	}
	for _, e := range s.Entries(CategoryMessages) {
		get(e.Time, e.Model).Messages += int64(e.Value)
	}

	out := make([]usage.Sample, 0, len(rollup))
	for _, sm := range rollup {
		out = append(out, *sm)
	}
	return out
}
