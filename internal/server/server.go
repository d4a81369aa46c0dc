// Package server exposes the live engine state over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/menu"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Config holds the server configuration.
type Config struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Addr      string `yaml:"addr" json:"addr" env:"ADDR"`
	StaticDir string `yaml:"static_dir" json:"static_dir" env:"STATIC_DIR"`
}

// DefaultConfig listens on localhost only.
func DefaultConfig() Config {
	return Config{Enabled: true, Addr: "127.0.0.1:8080"}
}

// Controller is the part of the running app the API may steer.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	SetTool(t menu.Tool) error
	SetSlides(n int) error
}

// Option configures a Server.
type Option func(*Server)

// WithStore serves the action, session and settings resources.
func WithStore(s *store.Store) Option {
	return func(srv *Server) {
		srv.store = s
	}
}

// WithMetrics serves the registry at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(srv *Server) {
		srv.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = logger
	}
}

// WithHub broadcasts frames from hub instead of a private one.
func WithHub(h *Hub) Option {
	return func(srv *Server) {
		srv.hub = h
	}
}

// WithPreview serves preview as an MJPEG stream at /api/stream.
func WithPreview(p Preview) Option {
	return func(srv *Server) {
		srv.preview = p
	}
}

// WithController enables the control endpoints.
func WithController(c Controller) Option {
	return func(srv *Server) {
		srv.ctrl = c
	}
}

// WithSettingsHooks vets setting writes with validate and reports them to
// onChange. Either may be nil.
func WithSettingsHooks(validate func(key, value string) error, onChange func(context.Context)) Option {
	return func(srv *Server) {
		srv.validateSetting = validate
		srv.settingsChanged = onChange
	}
}

// WithActionsChanged reports action binding writes to fn.
func WithActionsChanged(fn func(context.Context)) Option {
	return func(srv *Server) {
		srv.actionsChanged = fn
	}
}

// Server is the HTTP front of the engine.
type Server struct {
	cfg     Config
	router  chi.Router
	hub     *Hub
	store   *store.Store
	metrics *metrics.Metrics
	preview Preview
	ctrl    Controller
	logger  *slog.Logger
	start   time.Time

	validateSetting func(key, value string) error
	settingsChanged func(context.Context)
	actionsChanged  func(context.Context)
}

// New creates a Server and its routes.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logging.NewNop(),
		start:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = NewHub(s.logger)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(enableCORS)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/state", s.handleState)
	r.Get("/api/events", s.hub.ServeHTTP)

	if s.ctrl != nil {
		r.Put("/api/enabled", s.handleEnabled)
		r.Put("/api/tool", s.handleTool)
		r.Put("/api/slides", s.handleSlides)
	}
	if s.preview != nil {
		r.Get("/api/stream", NewStreamHandler(s.preview).ServeHTTP)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	if s.store != nil {
		r.Mount("/api/actions", api.NewActionHandler(s.store, s.actionsChanged).Routes())
		r.Mount("/api/sessions", api.NewSessionHandler(s.store).Routes())
		r.Mount("/api/settings", api.NewSettingsHandler(s.store, s.validateSetting, s.settingsChanged).Routes())
	}
	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Hub returns the frame broadcaster. It is the sink to publish frames to.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

type stateResponse struct {
	Enabled bool          `json:"enabled"`
	Clients int           `json:"clients"`
	Frame   *engine.Frame `json:"frame"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{Enabled: true, Clients: s.hub.Clients()}
	if s.ctrl != nil {
		resp.Enabled = s.ctrl.IsEnabled()
	}
	if fr, ok := s.hub.Last(); ok {
		resp.Frame = &fr
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	s.ctrl.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.ctrl.IsEnabled()})
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tool string `json:"tool"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	t, err := menu.ParseTool(req.Tool)
	if err == nil {
		err = s.ctrl.SetTool(t)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"tool": string(t)})
}

func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slides *int `json:"slides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slides == nil {
		writeError(w, http.StatusBadRequest, "slides is required")
		return
	}
	if err := s.ctrl.SetSlides(*req.Slides); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"slides": *req.Slides})
}
