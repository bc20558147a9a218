// Package web provides the HTTP status and control surface for the
// temperature logger.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/temp-logger/internal/status"
)

// Controls is the subset of the lifecycle controller the web surface needs.
type Controls interface {
	Start() error
	Stop() error
}

// Server serves the status page, the JSON status, the Prometheus metrics and
// the start/stop control endpoints.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	controls   Controls
}

// New creates a Server reading state from tracker. controls may be nil, in
// which case the control endpoints report 503.
func New(addr string, tracker *status.Tracker, controls Controls) *Server {
	s := &Server{tracker: tracker, controls: controls}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, func(c Controls) error { return c.Start() })
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.handleControl(w, r, func(c Controls) error { return c.Stop() })
}

// controlResponse is the JSON reply of the start/stop endpoints.
type controlResponse struct {
	OK    bool   `json:"ok"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request, act func(Controls) error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.controls == nil {
		http.Error(w, "control not available", http.StatusServiceUnavailable)
		return
	}

	resp := controlResponse{OK: true}
	code := http.StatusOK
	if err := act(s.controls); err != nil {
		// A rejected transition is a state conflict, not a server fault.
		resp.OK = false
		resp.Error = err.Error()
		code = http.StatusConflict
	}
	resp.State = s.tracker.Snapshot().State

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
