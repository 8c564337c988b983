// Package api serves the live world state over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elektrokombinacija/mapf-exec/internal/core"
	"github.com/elektrokombinacija/mapf-exec/internal/logging"
)

// Source provides the snapshot published at the last tick boundary.
// exec.Scheduler implements it.
type Source interface {
	Snapshot() *core.Snapshot
}

// Server holds the handler dependencies. Graph, Hub and Gatherer are
// optional; their routes answer 404 when unset.
type Server struct {
	Source   Source
	Graph    *core.Graph
	Hub      *Hub
	Gatherer prometheus.Gatherer
	Log      *slog.Logger
}

// NewHandler creates the router.
func NewHandler(s *Server) http.Handler {
	if s.Log == nil {
		s.Log = logging.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Get("/snapshot", s.GetSnapshot)
	r.Get("/agents", s.ListAgents)
	r.Get("/agents/{id}", s.GetAgent)
	r.Get("/ledger", s.GetLedger)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Health reports liveness plus the current tick.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	snap := s.Source.Snapshot()
	s.writeJSON(w, map[string]any{
		"status": "ok",
		"run_id": snap.RunID,
		"tick":   snap.Tick,
		"done":   snap.Done,
	})
}

// GetSnapshot handles GET /snapshot.
func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Source.Snapshot())
}

// ListAgents handles GET /agents.
func (s *Server) ListAgents(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Source.Snapshot().Agents)
}

// GetAgent handles GET /agents/{id}.
func (s *Server) GetAgent(w http.ResponseWriter, r *http.Request) {
	id := core.AgentID(chi.URLParam(r, "id"))
	a, ok := s.Source.Snapshot().Agent(id)
	if !ok {
		http.Error(w, fmt.Sprintf("agent %q not found", id), http.StatusNotFound)
		return
	}
	s.writeJSON(w, a)
}

// GetLedger handles GET /ledger.
func (s *Server) GetLedger(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Source.Snapshot().Ledger)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	if s.Graph == nil {
		http.NotFound(w, r)
		return
	}
	nodes := make([]*core.Node, 0, s.Graph.Len())
	for _, id := range s.Graph.IDs() {
		n, _ := s.Graph.Node(id)
		nodes = append(nodes, n)
	}
	s.writeJSON(w, nodes)
}

// SubscribeEvents streams one snapshot per tick as server-sent events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.NotFound(w, r)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.Hub.Subscribe(r.Context())
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for snap := range events {
		data, err := json.Marshal(snap)
		if err != nil {
			s.Log.Warn("snapshot encode failed", "error", err)
			continue
		}
		fmt.Fprintf(w, "event: tick\ndata: %s\n\n", data)
		flusher.Flush()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warn("response encode failed", "error", err)
	}
}
