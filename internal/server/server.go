// Package server exposes the dashboard's HTTP API: JSON views over the
// session index and usage aggregation, the OTLP metrics intake, the log
// stream, and the websocket push channel.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/openclaw/clawmetry/internal/config"
	"github.com/openclaw/clawmetry/internal/ingest"
	"github.com/openclaw/clawmetry/internal/metrics"
	"github.com/openclaw/clawmetry/internal/stream"
	"github.com/openclaw/clawmetry/internal/subagent"
	"github.com/openclaw/clawmetry/internal/usage"
)

type Server struct {
	config     *config.Config
	reader     *subagent.Reader
	aggregator *usage.Aggregator
	store      *metrics.Store
	receiver   *ingest.Receiver
	hub        *stream.Hub
	frontend   http.Handler
	authToken  string
}

func NewServer(cfg *config.Config, reader *subagent.Reader, aggregator *usage.Aggregator, store *metrics.Store, hub *stream.Hub, frontend http.Handler) *Server {
	return &Server{
		config:     cfg,
		reader:     reader,
		aggregator: aggregator,
		store:      store,
		receiver:   ingest.NewReceiver(store),
		hub:        hub,
		frontend:   frontend,
		authToken:  cfg.Server.AuthToken,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/overview", s.handleOverview)
	mux.HandleFunc("/api/subagents", s.handleSubagents)
	mux.HandleFunc("/api/subagents/", s.handleSubagentRoutes)
	mux.HandleFunc("/api/usage", s.handleUsage)
	mux.HandleFunc("/api/usage/export", s.handleUsageExport)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/logs-stream", s.handleLogStream)
	mux.HandleFunc("/api/memory-files", s.handleMemoryFiles)
	mux.HandleFunc("/api/file", s.handleFile)
	mux.HandleFunc("/api/crons", s.handleCrons)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/v1/metrics", s.handleMetricsIngest)

	if s.frontend != nil {
		mux.Handle("/", s.frontend)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	c := s.hub.AddClient(conn)
	go s.hub.ReadLoop(c)
}

// handleSubagentRoutes parses /api/subagents/{key}/activity.
func (s *Server) handleSubagentRoutes(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/subagents/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] != "activity" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	key, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "invalid subagent key", http.StatusBadRequest)
		return
	}
	s.handleActivity(w, r, key)
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	if strings.HasPrefix(host, "localhost:") || host == "localhost" {
		return true
	}
	if strings.HasPrefix(host, "127.0.0.1:") || host == "127.0.0.1" {
		return true
	}
	if strings.HasPrefix(host, "[::1]:") || host == "::1" {
		return true
	}

	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("Server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
