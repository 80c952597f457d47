// Package metricsserver optionally exposes a kernel.Interface's runtime
// measurements over HTTP. Nothing in the kernel itself depends on this
// package; a host program wires it in only if it wants the exposition.
package metricsserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	kernel "github.com/s3fkernel/kernel"
)

// Server exposes GET /metrics as a JSON encoding of
// Interface.RuntimeMeasurements().
type Server struct {
	iface  *kernel.Interface
	router chi.Router
	srv    *http.Server
}

// NewServer builds a Server bound to addr. Call ListenAndServe to start
// it; it does nothing until then.
func NewServer(iface *kernel.Interface, addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s := &Server{iface: iface, router: r}
	r.Get("/metrics", s.handleMetrics)
	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.iface.RuntimeMeasurements()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		EventsExecuted uint64 `json:"events_executed"`
		WorkEvents     uint64 `json:"work_events"`
		SyncEvents     uint64 `json:"sync_events"`
		WallTimeMillis int64  `json:"wall_time_millis"`
		SimTime        int64  `json:"sim_time"`
	}{
		EventsExecuted: m.EventsExecuted,
		WorkEvents:     m.WorkEvents,
		SyncEvents:     m.SyncEvents,
		WallTimeMillis: m.WallTime.Milliseconds(),
		SimTime:        int64(m.SimTime),
	})
}

// ListenAndServe starts the HTTP listener; it blocks until the server
// stops or errors.
func (s *Server) ListenAndServe() error { return s.srv.ListenAndServe() }

// Close shuts the server down.
func (s *Server) Close() error { return s.srv.Close() }
