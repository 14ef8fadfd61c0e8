// Admin JSON API surfacing live fleet state, twins, and the audit trail
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bioprintctl/internal/audit"
	"bioprintctl/internal/feed"
	"bioprintctl/internal/pipeline"
	"bioprintctl/internal/twin"
)

const defaultListLimit = 50

// Server exposes read accessors over the pipeline plus a couple of harness
// controls. It never re-derives state; everything comes from the caches and
// stores the pipeline maintains.
type Server struct {
	tenantID string
	proc     *pipeline.Processor
	twins    *twin.Service
	trail    *audit.Trail
	harness  *feed.Harness // nil when no feed harness is running
	registry *prometheus.Registry
	mux      *http.ServeMux
	srv      *http.Server
}

// NewServer wires the admin API. harness and registry may be nil.
func NewServer(tenantID string, proc *pipeline.Processor, twins *twin.Service, trail *audit.Trail, harness *feed.Harness, registry *prometheus.Registry) *Server {
	s := &Server{
		tenantID: tenantID,
		proc:     proc,
		twins:    twins,
		trail:    trail,
		harness:  harness,
		registry: registry,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/fleet", s.handleFleet)
	s.mux.HandleFunc("/twins", s.handleTwins)
	s.mux.HandleFunc("/twin", s.handleTwin)
	s.mux.HandleFunc("/commands", s.handleCommands)
	s.mux.HandleFunc("/audit", s.handleAudit)
	s.mux.HandleFunc("/audit/verify", s.handleAuditVerify)
	s.mux.HandleFunc("/toggle-chaos", s.handleToggleChaos)
	if s.registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.mux}
	go func() {
		<-ctx.Done()
		s.srv.Shutdown(context.Background())
	}()
	return s.srv.ListenAndServe()
}

// Handler returns the underlying mux, used by tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "live_printers": len(s.proc.Snapshots())})
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.proc.Snapshots())
}

func (s *Server) handleTwins(w http.ResponseWriter, r *http.Request) {
	states, err := s.twins.FindAll(r.Context(), s.tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, states)
}

func (s *Server) handleTwin(w http.ResponseWriter, r *http.Request) {
	printerID := r.URL.Query().Get("printer")
	if printerID == "" {
		http.Error(w, "missing printer parameter", http.StatusBadRequest)
		return
	}
	state, err := s.twins.FindByPrinterID(r.Context(), s.tenantID, printerID)
	if errors.Is(err, twin.ErrNotFound) {
		http.Error(w, "no twin state for printer", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, state)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	commands, err := s.proc.RecentCommands(r.Context(), s.tenantID, queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, commands)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	events, err := s.trail.Recent(r.Context(), s.tenantID, queryLimit(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r)
	if limit == defaultListLimit && r.URL.Query().Get("limit") == "" {
		limit = 0 // verify the whole chain unless told otherwise
	}
	result, err := s.trail.VerifyChain(r.Context(), s.tenantID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleToggleChaos(w http.ResponseWriter, r *http.Request) {
	if s.harness == nil {
		http.Error(w, "no feed harness running", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"chaos": s.harness.ToggleChaos()})
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
