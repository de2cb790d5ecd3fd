// Package usage aggregates token and cost activity into the daily report
// the dashboard renders. Aggregation is a pure fold over samples: the same
// samples at the same instant always produce the same report.
package usage

import (
	"sort"
	"time"

	"github.com/openclaw/clawmetry/internal/config"
)

// Sample is one cost-bearing observation, regardless of where it came from
// (a transcript usage block or an ingested metric point).
type Sample struct {
	Time       time.Time
	Model      string
	Input      int64
	Output     int64
	CacheRead  int64
	CacheWrite int64
	Total      int64
	Cost       float64
	Messages   int64
}

// DayStat is one calendar day's rollup inside the report window.
type DayStat struct {
	Date         string  `json:"date"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	CacheRead    int64   `json:"cacheRead"`
	CacheWrite   int64   `json:"cacheWrite"`
	TotalTokens  int64   `json:"totalTokens"`
	Cost         float64 `json:"cost"`
	Messages     int64   `json:"messages"`
}

// PeriodStat rolls up one budget period (today, this week, this month).
type PeriodStat struct {
	TotalTokens int64   `json:"totalTokens"`
	Cost        float64 `json:"cost"`
	Messages    int64   `json:"messages"`
}

// ModelStat is one model's share of the window, sorted by tokens descending.
type ModelStat struct {
	Model       string  `json:"model"`
	TotalTokens int64   `json:"totalTokens"`
	Cost        float64 `json:"cost"`
	Messages    int64   `json:"messages"`
}

// Report is the complete usage view for the report window.
type Report struct {
	Days              []DayStat   `json:"days"`
	Today             PeriodStat  `json:"today"`
	Week              PeriodStat  `json:"week"`
	Month             PeriodStat  `json:"month"`
	Models            []ModelStat `json:"models"`
	Trend             Trend       `json:"trend"`
	MonthlyProjection float64     `json:"monthlyProjection"`
	Warnings          []Warning   `json:"warnings"`
	Source            string      `json:"source"`
	GeneratedAt       time.Time   `json:"generatedAt"`
}

// WindowDays is the report window length.
const WindowDays = 14

const dateLayout = "2006-01-02"

// BuildReport folds samples into a report relative to now. Samples outside
// the window are ignored. Every day of the window appears in Days, zero
// days included, oldest first.
func BuildReport(cfg *config.Config, samples []Sample, now time.Time, source string) *Report {
	now = now.Local()
	windowStart := dayStart(now).AddDate(0, 0, -(WindowDays - 1))

	days := make([]DayStat, WindowDays)
	for i := range days {
		days[i].Date = windowStart.AddDate(0, 0, i).Format(dateLayout)
	}
	byDate := make(map[string]*DayStat, WindowDays)
	for i := range days {
		byDate[days[i].Date] = &days[i]
	}

	todayKey := dayStart(now).Format(dateLayout)
	weekStart := startOfWeek(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	models := map[string]*ModelStat{}
	rpt := &Report{Source: source, GeneratedAt: now}

	for _, s := range samples {
		if s.Time.IsZero() {
			continue
		}
		t := s.Time.Local()
		cost := estimateCost(cfg, s)
		tokens := sampleTokens(s)
		messages := s.Messages
		if messages == 0 {
			messages = 1
		}

		// The day buckets only cover the report window; the period rollups
		// must not be gated on them. The month in particular reaches back
		// before the window start for most of its length.
		if d, ok := byDate[t.Format(dateLayout)]; ok {
			d.InputTokens += s.Input
			d.OutputTokens += s.Output
			d.CacheRead += s.CacheRead
			d.CacheWrite += s.CacheWrite
			d.TotalTokens += tokens
			d.Cost += cost
			d.Messages += messages
		}

		if t.Format(dateLayout) == todayKey {
			addPeriod(&rpt.Today, tokens, cost, messages)
		}
		if !t.Before(weekStart) {
			addPeriod(&rpt.Week, tokens, cost, messages)
		}
		if !t.Before(monthStart) {
			addPeriod(&rpt.Month, tokens, cost, messages)
		}

		model := s.Model
		if model == "" {
			model = "unknown"
		}
		m, ok := models[model]
		if !ok {
			m = &ModelStat{Model: model}
			models[model] = m
		}
		m.TotalTokens += tokens
		m.Cost += cost
		m.Messages += messages
	}

	rpt.Days = days
	rpt.Models = sortModels(models)
	rpt.Trend = computeTrend(days)
	rpt.MonthlyProjection = projectMonthly(days)
	rpt.Warnings = buildWarnings(cfg.Budgets, rpt)
	return rpt
}

func addPeriod(p *PeriodStat, tokens int64, cost float64, messages int64) {
	p.TotalTokens += tokens
	p.Cost += cost
	p.Messages += messages
}

func sampleTokens(s Sample) int64 {
	if s.Total > 0 {
		return s.Total
	}
	return s.Input + s.Output + s.CacheRead + s.CacheWrite
}

// estimateCost uses the sample's own cost when present and falls back to
// pricing-table estimation otherwise. With no token breakdown the configured
// input share splits the total.
func estimateCost(cfg *config.Config, s Sample) float64 {
	if s.Cost > 0 {
		return s.Cost
	}
	tokens := sampleTokens(s)
	if tokens == 0 {
		return 0
	}
	price := cfg.Price(s.Model)

	input, output := s.Input, s.Output
	if input == 0 && output == 0 {
		input = int64(float64(tokens) * cfg.Pricing.InputShare)
		output = tokens - input
	}
	return float64(input)/1e6*price.InputPerMTok + float64(output)/1e6*price.OutputPerMTok
}

func sortModels(models map[string]*ModelStat) []ModelStat {
	out := make([]ModelStat, 0, len(models))
	for _, m := range models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalTokens != out[j].TotalTokens {
			return out[i].TotalTokens > out[j].TotalTokens
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// projectMonthly extrapolates the month's spend from the window's average
// daily cost over days that actually had activity.
func projectMonthly(days []DayStat) float64 {
	var total float64
	var active int
	for _, d := range days {
		if d.TotalTokens > 0 {
			total += d.Cost
			active++
		}
	}
	if active == 0 {
		return 0
	}
	return total / float64(active) * 30
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday 00:00 of t's week.
func startOfWeek(t time.Time) time.Time {
	d := dayStart(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
