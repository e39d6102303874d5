// Package api provides HTTP handlers and the main API server logic for
// intakepipe.
//
// It exposes RESTful endpoints for creating intake sessions, routing parent
// messages through the conversation engine, and submitting assessment
// responses. The API integrates with the engine, store, responder, and
// notify modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/engine"
	"github.com/carebridge/intakepipe/internal/store"
)

// Default timeouts for the HTTP server.
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the HTTP surface to the engine and its collaborators.
type Server struct {
	st        store.Store
	engine    *engine.Engine
	responder engine.Responder
	notifier  engine.Notifier
	auditor   audit.Recorder
	addr      string
	httpSrv   *http.Server
}

// NewServer assembles the API server. The notifier and responder may be nil;
// escalations are then logged only and replies fall back to empty prose.
func NewServer(st store.Store, eng *engine.Engine, responder engine.Responder, notifier engine.Notifier, auditor audit.Recorder, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if auditor == nil {
		auditor = audit.NopRecorder{}
	}
	return &Server{
		st:        st,
		engine:    eng,
		responder: responder,
		notifier:  notifier,
		auditor:   auditor,
		addr:      cfg.Addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", s.createSessionHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("POST /sessions/{id}/messages", s.messageHandler)
	mux.HandleFunc("POST /sessions/{id}/ready", s.markReadyHandler)
	mux.HandleFunc("POST /sessions/{id}/phase/confirm", s.confirmPhaseHandler)
	mux.HandleFunc("POST /sessions/{id}/assessment/responses", s.assessmentResponseHandler)
	mux.HandleFunc("GET /sessions/{id}/assessment", s.getAssessmentHandler)
	mux.HandleFunc("GET /sessions/{id}/audit", s.getAuditHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Info("intakepipe API running", "addr", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
