package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/openclaw/clawmetry/internal/logs"
	"github.com/openclaw/clawmetry/internal/subagent"
	"github.com/openclaw/clawmetry/internal/system"
	"github.com/openclaw/clawmetry/internal/usage"
	"github.com/openclaw/clawmetry/internal/workspace"
)

var startedAt = time.Now()

// overviewResponse is the single-call payload behind the landing page.
type overviewResponse struct {
	Subagents   subagent.Summary `json:"subagents"`
	MainSession *subagent.View   `json:"mainSession,omitempty"`
	Usage       overviewUsage    `json:"usage"`
	System      []system.Stat    `json:"system"`
	Crons       int              `json:"crons"`
	MemoryFiles int              `json:"memoryFiles"`
	Metrics     overviewMetrics  `json:"metrics"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type overviewUsage struct {
	TodayCost   float64         `json:"todayCost"`
	TodayTokens int64           `json:"todayTokens"`
	Trend       usage.Trend     `json:"trend"`
	Warnings    []usage.Warning `json:"warnings"`
	Source      string          `json:"source"`
}

type overviewMetrics struct {
	LastReceived *time.Time     `json:"lastReceived,omitempty"`
	Fresh        bool           `json:"fresh"`
	Counts       map[string]int `json:"counts"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	_, summary := s.reader.Views(now)
	rpt := s.aggregator.Report()

	resp := overviewResponse{
		Subagents: summary,
		Usage: overviewUsage{
			TodayCost:   rpt.Today.Cost,
			TodayTokens: rpt.Today.TotalTokens,
			Trend:       rpt.Trend,
			Warnings:    rpt.Warnings,
			Source:      rpt.Source,
		},
		System:      system.Collect(),
		Crons:       len(workspace.CronJobs(s.config.Paths.CronsFile)),
		MemoryFiles: len(workspace.MemoryFiles(s.config.Paths.Workspace)),
		Metrics: overviewMetrics{
			Fresh:  s.store.Fresh(now),
			Counts: s.store.Counts(),
		},
		GeneratedAt: now,
	}
	if main, ok := s.reader.MainView(now); ok {
		resp.MainSession = &main
	}
	if last := s.store.LastReceived(); !last.IsZero() {
		resp.Metrics.LastReceived = &last
	}
	writeJSON(w, resp)
}

func (s *Server) handleSubagents(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	views, summary := s.reader.Views(time.Now())
	writeJSON(w, map[string]any{
		"subagents": views,
		"summary":   summary,
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request, key string) {
	events, ok := s.reader.Timeline(key)
	if !ok {
		writeError(w, http.StatusNotFound, "subagent not found")
		return
	}
	writeJSON(w, map[string]any{
		"key":    key,
		"events": events,
	})
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, s.aggregator.Report())
}

func (s *Server) handleUsageExport(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="usage.csv"`)
	if err := usage.WriteCSV(w, s.aggregator.Report()); err != nil {
		// Headers are out; nothing to do but log.
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

const (
	defaultLogLines = 100
	maxLogLines     = 2000
)

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	n := defaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	if n > maxLogLines {
		n = maxLogLines
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		day = parsed
	}

	lines, err := logs.Tail(s.config.Paths.LogDir, day, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"lines": lines,
		"days":  logs.Days(s.config.Paths.LogDir),
	})
}

func (s *Server) handleMemoryFiles(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, workspace.MemoryFiles(s.config.Paths.Workspace))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing path")
		return
	}

	content, err := workspace.ReadFile(s.config.Paths.Workspace, path)
	switch {
	case err == nil:
		writeJSON(w, map[string]string{"path": path, "content": content})
	case err == workspace.ErrOutsideWorkspace:
		writeError(w, http.StatusForbidden, "access denied")
	case err == workspace.ErrNotFound:
		writeError(w, http.StatusNotFound, "file not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleCrons(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{"jobs": workspace.CronJobs(s.config.Paths.CronsFile)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
		"wsClients":     s.hub.ClientCount(),
		"metricsFresh":  s.store.Fresh(time.Now()),
	})
}

// handleMetricsIngest is the OTLP intake. The agent pushes here; no auth
// token means an open intake, same as the rest of the API.
func (s *Server) handleMetricsIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.receiver.HandleRequest(r.Body, r.Header.Get("Content-Type")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.aggregator.Invalidate()
	writeJSON(w, map[string]any{"partialSuccess": map[string]any{}})
}
