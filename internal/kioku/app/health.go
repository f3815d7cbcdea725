package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bdobrica/Kioku/common/version"
	"github.com/bdobrica/Kioku/internal/kioku/observability"
)

// StatusServer exposes /health, /status, and /metrics over HTTP.
// It is optional; Kioku runs without it when MetricsAddr is empty.
type StatusServer struct {
	addr   string
	source statusSource
	server *http.Server
	mux    *http.ServeMux
}

// statusSource is the minimal view of the application the server reports on.
type statusSource interface {
	Status() Status
}

// healthResponse is returned by GET /health.
type healthResponse struct {
	observability.HealthStatus
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// statusResponse is returned by GET /status.
type statusResponse struct {
	Status         string                 `json:"status"`
	Reason         string                 `json:"reason,omitempty"`
	Version        string                 `json:"version"`
	Commit         string                 `json:"commit"`
	BuildTime      string                 `json:"build_time"`
	StartedAt      time.Time              `json:"started_at"`
	UptimeSecs     float64                `json:"uptime_seconds"`
	ActiveSessions int                    `json:"active_sessions"`
	MaxSessions    int                    `json:"max_sessions"`
	HeapAllocMB    uint64                 `json:"heap_alloc_mb"`
	HeapSysMB      uint64                 `json:"heap_sys_mb"`
	Conversations  observability.Snapshot `json:"conversations"`
}

// NewStatusServer creates and configures the HTTP server (does not start
// it). A nil gatherer serves the default Prometheus registry on /metrics.
func NewStatusServer(addr string, source statusSource, gatherer prometheus.Gatherer) *StatusServer {
	mux := http.NewServeMux()
	s := &StatusServer{
		addr:   addr,
		source: source,
		mux:    mux,
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.MetricsHandler(gatherer))
	return s
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder).
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *StatusServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("status server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("status server stopped", "err", err)
		}
	}()

	// Shutdown when ctx is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("status server shutdown error", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (s *StatusServer) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("status server shutdown error", "err", err)
	}
}

// handleHealth responds with the health verdict and build information.
func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		HealthStatus: s.source.Status().Health,
		Version:      version.Version,
		Commit:       version.GitCommit,
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStatus responds with runtime statistics.
func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.source.Status()
	resp := statusResponse{
		Status:         st.Health.Status,
		Reason:         st.Health.Reason,
		Version:        version.Version,
		Commit:         version.GitCommit,
		BuildTime:      version.BuildTime,
		StartedAt:      st.StartedAt,
		UptimeSecs:     st.Uptime.Seconds(),
		ActiveSessions: st.Memory.ActiveSessions,
		MaxSessions:    st.Memory.MaxSessions,
		HeapAllocMB:    st.Memory.HeapAllocMB,
		HeapSysMB:      st.Memory.HeapSysMB,
		Conversations:  st.Counters,
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("status server: encode response", "err", err)
	}
}

// Compile-time interface satisfaction check.
var _ statusSource = (*App)(nil)
