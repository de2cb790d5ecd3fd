package usage

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/openclaw/clawmetry/internal/config"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 15, 0, 0, 0, time.Local)
}

func daySample(daysAgo int, tokens int64, cost float64) Sample {
	return Sample{
		Time:  fixedNow().AddDate(0, 0, -daysAgo).Add(-2 * time.Hour),
		Model: "claude-opus-4-5",
		Total: tokens,
		Cost:  cost,
	}
}

func TestBuildReportIdempotent(t *testing.T) {
	cfg := config.Default()
	samples := []Sample{
		daySample(0, 1000, 0.10),
		daySample(1, 2000, 0.20),
		daySample(5, 3000, 0.30),
	}

	a := BuildReport(cfg, samples, fixedNow(), "transcripts")
	b := BuildReport(cfg, samples, fixedNow(), "transcripts")
	if !reflect.DeepEqual(a, b) {
		t.Error("same samples at the same instant produced different reports")
	}
}

func TestBuildReportWindow(t *testing.T) {
	cfg := config.Default()
	samples := []Sample{
		daySample(0, 1000, 0.10),
		daySample(13, 500, 0.05),
		daySample(20, 9999, 9.99), // outside the window
	}

	rpt := BuildReport(cfg, samples, fixedNow(), "transcripts")
	if len(rpt.Days) != WindowDays {
		t.Fatalf("got %d days, want %d", len(rpt.Days), WindowDays)
	}
	if rpt.Days[0].TotalTokens != 500 {
		t.Errorf("oldest day tokens = %d, want 500", rpt.Days[0].TotalTokens)
	}
	if rpt.Days[WindowDays-1].TotalTokens != 1000 {
		t.Errorf("today tokens = %d, want 1000", rpt.Days[WindowDays-1].TotalTokens)
	}

	var total int64
	for _, d := range rpt.Days {
		total += d.TotalTokens
	}
	if total != 1500 {
		t.Errorf("window total = %d, want 1500 (out-of-window sample dropped)", total)
	}
}

func TestBuildReportPeriods(t *testing.T) {
	cfg := config.Default()
	// Sunday 2026-08-30: the week starts Monday 2026-08-24.
	samples := []Sample{
		daySample(0, 1000, 1.00), // today
		daySample(3, 2000, 2.00), // Thursday, same week and month
		daySample(8, 4000, 4.00), // previous week, same month
	}

	rpt := BuildReport(cfg, samples, fixedNow(), "transcripts")
	if rpt.Today.Cost != 1.00 {
		t.Errorf("today cost = %v, want 1.00", rpt.Today.Cost)
	}
	if rpt.Week.Cost != 3.00 {
		t.Errorf("week cost = %v, want 3.00", rpt.Week.Cost)
	}
	if rpt.Month.Cost != 7.00 {
		t.Errorf("month cost = %v, want 7.00", rpt.Month.Cost)
	}
}

func TestBuildReportMonthReachesBeforeWindow(t *testing.T) {
	cfg := config.Default()
	// 2026-08-05 is 25 days before now: inside the calendar month but well
	// outside the 14-day chart window.
	samples := []Sample{
		daySample(0, 1000, 1.00),
		daySample(25, 1000, 4.00),
	}

	rpt := BuildReport(cfg, samples, fixedNow(), "transcripts")
	if rpt.Month.Cost != 5.00 || rpt.Month.TotalTokens != 2000 {
		t.Errorf("month = %+v, want cost 5.00 over 2000 tokens", rpt.Month)
	}
	if rpt.Week.Cost != 1.00 {
		t.Errorf("week cost = %v, want 1.00 (old sample excluded)", rpt.Week.Cost)
	}
	if len(rpt.Models) != 1 || rpt.Models[0].TotalTokens != 2000 {
		t.Errorf("models = %+v, want both samples attributed", rpt.Models)
	}

	var windowTokens int64
	for _, d := range rpt.Days {
		windowTokens += d.TotalTokens
	}
	if windowTokens != 1000 {
		t.Errorf("window tokens = %d, want 1000 (chart stays windowed)", windowTokens)
	}
}

func TestEstimateCost(t *testing.T) {
	cfg := config.Default()

	// Explicit cost wins.
	if got := estimateCost(cfg, Sample{Cost: 0.5, Total: 100}); got != 0.5 {
		t.Errorf("explicit cost = %v, want 0.5", got)
	}

	// Known breakdown: 1M input + 1M output at opus pricing.
	got := estimateCost(cfg, Sample{Model: "claude-opus-4-5", Input: 1_000_000, Output: 1_000_000})
	if got != 30.0 {
		t.Errorf("breakdown estimate = %v, want 30.0", got)
	}

	// No breakdown: the input share splits the total.
	got = estimateCost(cfg, Sample{Model: "claude-opus-4-5", Total: 1_000_000})
	// 600k input * $5/M + 400k output * $25/M = 3 + 10
	if got < 12.99 || got > 13.01 {
		t.Errorf("split estimate = %v, want ~13.0", got)
	}
}

func TestComputeTrend(t *testing.T) {
	mkDays := func(tokens ...int64) []DayStat {
		days := make([]DayStat, len(tokens))
		for i, n := range tokens {
			days[i].TotalTokens = n
		}
		return days
	}

	tests := []struct {
		name   string
		tokens []int64
		want   Trend
	}{
		{"ramp up", []int64{100, 100, 100, 100, 100, 300, 300}, TrendIncreasing},
		{"ramp down", []int64{300, 300, 300, 300, 300, 100, 100}, TrendDecreasing},
		{"flat", []int64{100, 100, 100, 100, 100, 100}, TrendStable},
		{"two active days", []int64{0, 0, 100, 200, 0}, TrendInsufficient},
		{"no history", nil, TrendInsufficient},
		{"exactly three active", []int64{100, 100, 100}, TrendStable},
		{"zero days skipped", []int64{100, 0, 100, 0, 100, 0, 300, 0, 300}, TrendIncreasing},
	}
	for _, tt := range tests {
		if got := computeTrend(mkDays(tt.tokens...)); got != tt.want {
			t.Errorf("%s: trend = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWarningsTwoTier(t *testing.T) {
	cfg := config.Default()

	// $12 today crosses both daily tiers; only the error fires.
	rpt := BuildReport(cfg, []Sample{daySample(0, 100, 12.00)}, fixedNow(), "transcripts")
	var daily []Warning
	for _, w := range rpt.Warnings {
		if w.Period == "daily" {
			daily = append(daily, w)
		}
	}
	if len(daily) != 1 {
		t.Fatalf("got %d daily warnings, want 1: %+v", len(daily), rpt.Warnings)
	}
	if daily[0].Severity != WarningError {
		t.Errorf("daily severity = %v, want error", daily[0].Severity)
	}

	// $0.50 crosses nothing.
	rpt = BuildReport(cfg, []Sample{daySample(0, 100, 0.50)}, fixedNow(), "transcripts")
	if len(rpt.Warnings) != 0 {
		t.Errorf("got warnings %+v, want none", rpt.Warnings)
	}
}

func hasProjectionWarning(rpt *Report) bool {
	for _, w := range rpt.Warnings {
		if w.Period == "projection" && w.Severity == WarningWarn {
			return true
		}
	}
	return false
}

func TestProjectionWarning(t *testing.T) {
	cfg := config.Default()

	// Usage ramps from 100 to 300 tokens/day at $4/day: under every period
	// budget, trend increasing, projecting to $120/month above the $100
	// ceiling.
	var samples []Sample
	for i := 4; i <= 9; i++ {
		samples = append(samples, daySample(i, 100, 4.00))
	}
	for i := 1; i <= 3; i++ {
		samples = append(samples, daySample(i, 300, 4.00))
	}
	rpt := BuildReport(cfg, samples, fixedNow(), "transcripts")

	if rpt.Trend != TrendIncreasing {
		t.Fatalf("trend = %v, want increasing", rpt.Trend)
	}
	if rpt.MonthlyProjection < 119.9 || rpt.MonthlyProjection > 120.1 {
		t.Fatalf("projection = %v, want ~120", rpt.MonthlyProjection)
	}
	if !hasProjectionWarning(rpt) {
		t.Errorf("no projection warning in %+v", rpt.Warnings)
	}
}

func TestProjectionWarningRequiresIncreasingTrend(t *testing.T) {
	cfg := config.Default()

	// Same $4/day spend but flat token usage: the projection still exceeds
	// the ceiling, yet a steady burn rate is not worth an alert.
	var samples []Sample
	for i := 1; i <= 10; i++ {
		samples = append(samples, daySample(i, 1000, 4.00))
	}
	rpt := BuildReport(cfg, samples, fixedNow(), "transcripts")

	if rpt.Trend != TrendStable {
		t.Fatalf("trend = %v, want stable", rpt.Trend)
	}
	if rpt.MonthlyProjection < 119.9 || rpt.MonthlyProjection > 120.1 {
		t.Fatalf("projection = %v, want ~120", rpt.MonthlyProjection)
	}
	if hasProjectionWarning(rpt) {
		t.Errorf("projection warning fired on a stable trend: %+v", rpt.Warnings)
	}
}

func TestAggregatorCacheTTL(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.IndexFile = t.TempDir() + "/missing.json"

	agg := NewAggregator(cfg, nil)
	first := agg.Report()
	second := agg.Report()
	if first != second {
		t.Error("reports inside the TTL should be the same instance")
	}

	agg.Invalidate()
	third := agg.Report()
	if third == first {
		t.Error("Invalidate should force a rebuild")
	}
	if third.Source != "none" {
		t.Errorf("source = %q, want none with no data", third.Source)
	}
}

func TestWriteCSV(t *testing.T) {
	cfg := config.Default()
	rpt := BuildReport(cfg, []Sample{daySample(0, 1000, 0.10)}, fixedNow(), "transcripts")

	var buf bytes.Buffer
	if err := WriteCSV(&buf, rpt); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != WindowDays+1 {
		t.Fatalf("got %d CSV lines, want header plus %d days", len(lines), WindowDays)
	}
	if !strings.HasPrefix(lines[0], "date,input_tokens") {
		t.Errorf("header = %q", lines[0])
	}
}
