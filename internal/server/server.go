// Package server serves the flip clock to browsers: the page, a snapshot of
// the digit slots and a server-sent event stream of document mutations.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/lo"

	"github.com/rustedturnip/flipclock"
	"github.com/rustedturnip/flipclock/dom"
)

const (
	defaultHeartbeat  = 25 * time.Second
	readHeaderTimeout = 5 * time.Second
)

//go:embed assets
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

// Config holds the HTTP settings of a Server.
type Config struct {
	Addr string

	// Heartbeat is the interval of keep-alive comments on event streams.
	Heartbeat time.Duration
}

// Server publishes a dom.Document over HTTP.
type Server struct {
	cfg      Config
	document *dom.Document
	logger   *slog.Logger
	clock    clock.Clock
	hub      *hub
	srv      *http.Server
	handler  http.Handler

	unobserve func()
	done      chan struct{}
	closeOnce sync.Once
}

// New returns a Server streaming the mutations of document. A nil logger
// falls back to slog.Default().
func New(cfg Config, document *dom.Document, logger *slog.Logger) (*Server, error) {

	if document == nil {
		return nil, flipclock.ErrNilDocument
	}

	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      cfg,
		document: document,
		logger:   logger,
		clock:    clock.New(),
		hub:      newHub(),
		done:     make(chan struct{}),
	}

	static, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", s.index)
	r.Get("/snapshot", s.snapshot)
	r.Get("/events", s.events)
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(static))))

	s.handler = r
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.unobserve = document.Observe(s.hub.publish)

	return s, nil
}

// Handler returns the router of the Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until the Server is
// shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.cfg.Addr)

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown ends every event stream, stops observing the document and
// gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.unobserve()
	})

	return s.srv.Shutdown(ctx)
}

type fieldView struct {
	Name  string
	Slots []dom.SlotState
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {

	snapshot := s.document.Snapshot()

	fields := lo.Map(flipclock.Fields(), func(field flipclock.Field, _ int) fieldView {
		return fieldView{
			Name: field.String(),
			Slots: lo.Filter(snapshot, func(slot dom.SlotState, _ int) bool {
				return slot.Field == field.String()
			}),
		}
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := indexTemplate.Execute(w, fields); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render page", "error", err)
	}
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {

	payload, err := json.Marshal(s.document.Snapshot())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to marshal snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// events streams document mutations as server-sent events. The stream opens
// with the current snapshot so that nothing between page load and
// subscription is missed.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	sub := s.hub.subscribe(ctx)

	logger := s.logger.With("subscriber", sub.id.String(), "request_id", middleware.GetReqID(ctx))
	logger.DebugContext(ctx, "event stream opened")
	defer logger.DebugContext(ctx, "event stream closed")

	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}

	if err := writeEvent(w, "snapshot", s.document.Snapshot()); err != nil {
		logger.ErrorContext(ctx, "failed to send snapshot", "error", err)
		return
	}
	flusher.Flush()

	// heartbeat ping, so proxies won't drop idle connections.
	ticker := s.clock.Ticker(s.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-s.done:
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case m, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := writeEvent(w, "mutation", m); err != nil {
				logger.ErrorContext(ctx, "failed to send mutation", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {

	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.clock.Now()

		next.ServeHTTP(ww, r)

		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", s.clock.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
