package usage

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/openclaw/clawmetry/internal/config"
	"github.com/openclaw/clawmetry/internal/record"
	"github.com/openclaw/clawmetry/internal/subagent"
	"github.com/openclaw/clawmetry/internal/tail"
)

// SampleSource supplies samples from pushed metrics. Fresh reports whether
// the source has received data recently enough to be preferred over
// rescanning transcripts.
type SampleSource interface {
	UsageSamples() []Sample
	Fresh(now time.Time) bool
}

// Aggregator builds usage reports with a short TTL cache in front. Repeated
// dashboard polls inside the TTL share one report instead of re-reading
// every transcript.
type Aggregator struct {
	cfg    *config.Config
	source SampleSource
	now    func() time.Time

	mu       sync.Mutex
	cached   *Report
	cachedAt time.Time
}

func NewAggregator(cfg *config.Config, source SampleSource) *Aggregator {
	return &Aggregator{cfg: cfg, source: source, now: time.Now}
}

// Report returns the current usage report, rebuilding it when the cached
// one is older than the TTL.
func (a *Aggregator) Report() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.cached != nil && now.Sub(a.cachedAt) < a.cfg.Monitor.UsageCacheTTL {
		return a.cached
	}

	a.cached = a.build(now)
	a.cachedAt = now
	return a.cached
}

// Invalidate drops the cached report so the next call rebuilds.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.mu.Unlock()
}

// build prefers pushed metrics when they are flowing; otherwise it falls
// back to scanning transcript tails. An empty fallback still yields a
// well-formed zero report.
func (a *Aggregator) build(now time.Time) *Report {
	if a.source != nil && a.source.Fresh(now) {
		if samples := a.source.UsageSamples(); len(samples) > 0 {
			return BuildReport(a.cfg, samples, now, "metrics")
		}
	}

	samples := ScanTranscripts(a.cfg)
	source := "transcripts"
	if len(samples) == 0 {
		source = "none"
	}
	return BuildReport(a.cfg, samples, now, source)
}

// ScanTranscripts reads the tail of every indexed session's transcript and
// extracts one sample per assistant message that carries usage counts.
// Records without timestamps are skipped rather than guessed at.
func ScanTranscripts(cfg *config.Config) []Sample {
	index := subagent.LoadIndex(cfg.Paths.IndexFile)

	var samples []Sample
	for _, entry := range index {
		if entry.SessionID == "" {
			continue
		}
		path := filepath.Join(cfg.Paths.SessionsDir, entry.SessionID+".jsonl")
		lines, err := tail.Lines(path, cfg.Monitor.UsageTailSize)
		if err != nil {
			continue
		}
		for _, line := range lines {
			rec, ok := record.ParseTranscriptLine([]byte(line))
			if !ok || rec.Message == nil || rec.Message.Usage == nil {
				continue
			}
			if rec.Message.Role != "assistant" {
				continue
			}
			ts := rec.Time()
			if ts == nil {
				continue
			}
			u := rec.Message.Usage
			model := rec.Message.Model
			if model == "" {
				model = entry.Model
			}
			samples = append(samples, Sample{
				Time:       *ts,
				Model:      model,
				Input:      u.Input,
				Output:     u.Output,
				CacheRead:  u.CacheRead,
				CacheWrite: u.CacheWrite,
				Total:      u.Total,
				Cost:       u.Cost,
				Messages:   1,
			})
		}
	}
	return samples
}
