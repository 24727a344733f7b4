package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tdngyn/skimmer/internal/core/domain"
)

// ArchiveReader is the read side of the item archive, exposed on the
// health server when an archive is configured.
type ArchiveReader interface {
	Recent(ctx context.Context, source string, limit int) ([]domain.Item, error)
	Count(ctx context.Context, source string) (int, error)
}

// Server provides HTTP endpoints for health monitoring and, when an
// archive is configured, archived-item inspection.
type Server struct {
	monitor *Monitor
	archive ArchiveReader // optional
	server  *http.Server
}

// NewServer creates a new health server. archive may be nil.
func NewServer(monitor *Monitor, archive ArchiveReader, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		monitor: monitor,
		archive: archive,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/items/recent", s.handleRecent)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	status := Aggregate(report)

	w.Header().Set("Content-Type", "application/json")
	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	// Copy before annotating; the monitor caches its report.
	out := make(map[string]SourceReport, len(report))
	for name, rep := range report {
		if s.archive != nil {
			if n, err := s.archive.Count(r.Context(), name); err == nil {
				rep.ArchivedItems = n
			}
		}
		out[name] = rep
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		http.Error(w, "archive not configured", http.StatusNotFound)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		http.Error(w, "missing source parameter", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := s.archive.Recent(r.Context(), source, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}
