// Package server exposes the grant explorer pages over HTTP. Pages are
// served as JSON; individual panels can be fetched as PNG or CSV.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/pages"
	"github.com/spektr-org/grantlens/render"
)

// Server serves one page registry.
type Server struct {
	pages    *pages.Registry
	logger   *zap.Logger
	sessions *sessionStore
	metrics  *metrics
	mux      *http.ServeMux
	timeout  time.Duration

	maxSessions int
	sessionTTL  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSessionLimit caps how many sessions are remembered.
func WithSessionLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL forgets sessions idle for longer than d.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// New builds a Server over reg.
func New(reg *pages.Registry, opts ...Option) *Server {
	s := &Server{
		pages:   reg,
		logger:  zap.NewNop(),
		mux:     http.NewServeMux(),
		timeout: 10 * time.Second,

		maxSessions: DefaultMaxSessions,
		sessionTTL:  DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessionStore(s.maxSessions, s.sessionTTL)
	s.metrics = newMetrics(s.sessions)
	s.metrics.setRows(reg.Stats())

	s.mux.HandleFunc("GET /healthz", s.metrics.instrument("healthz", s.handleHealth))
	s.mux.Handle("GET /metrics", s.metrics.handler())
	s.mux.HandleFunc("GET /api/v1/pages", s.metrics.instrument("pages", s.handleList))
	s.mux.HandleFunc("GET /api/v1/pages/{page}", s.metrics.instrument("page", s.handlePage))
	s.mux.HandleFunc("GET /api/v1/pages/{page}/panels/{file}", s.metrics.instrument("panel", s.handlePanel))
	s.mux.HandleFunc("GET "+pages.NetworkImageURL, s.metrics.instrument("asset", s.handleNetworkImage))
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"tables":    s.pages.Stats(),
		"loaded_at": s.pages.LoadedAt().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pages": s.pages.List()})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, ok := s.renderPage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handlePanel serves panel n of a page as "<n>.png" or "<n>.csv".
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	name, ext, found := strings.Cut(file, ".")
	n, err := strconv.Atoi(name)
	if !found || err != nil || n < 0 || (ext != "png" && ext != "csv") {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}

	page, ok := s.renderPage(w, r)
	if !ok {
		return
	}
	if n >= len(page.Panels) {
		writeError(w, http.StatusNotFound, "panel not found")
		return
	}
	panel := page.Panels[n]

	var buf bytes.Buffer
	contentType := "image/png"
	if ext == "csv" {
		contentType = "text/csv; charset=utf-8"
		err = render.CSV(panel, &buf)
	} else {
		err = render.PNG(panel, &buf, render.Options{})
	}
	if err != nil {
		switch {
		case errors.Is(err, render.ErrEmptyPanel), errors.Is(err, render.ErrUnsupportedKind):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			s.logger.Error("panel render failed", zap.String("panel", panel.Title), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "panel render failed")
		}
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleNetworkImage(w http.ResponseWriter, r *http.Request) {
	path := s.pages.NetworkImage()
	if path == "" {
		writeError(w, http.StatusNotFound, "network image not configured")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "network image not found")
		return
	}
	http.ServeFile(w, r, path)
}

// renderPage computes the requested page. Query parameters are merged over
// the session's last selections for that page, and the decoded selections
// are stored back. It writes the error response itself when ok is false.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request) (*pages.Page, bool) {
	name := r.PathValue("page")
	id := sessionID(w, r)

	raw := s.sessions.get(id, name)
	if raw == nil {
		raw = make(map[string]string)
	}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[len(values)-1]
		}
	}

	start := time.Now()
	page, err := s.pages.Render(name, raw)
	if err != nil {
		switch {
		case errors.Is(err, pages.ErrUnknownPage):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, pages.ErrInvalidSelection), errors.Is(err, engine.ErrInvalidRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("page render failed", zap.String("page", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "page render failed")
		}
		return nil, false
	}
	s.metrics.renders.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if len(page.Selections) > 0 {
		s.sessions.put(id, name, page.Selections)
	}
	return page, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
