// Package server exposes dashboard sessions over a JSON HTTP API. Each
// session is an independent selection state; requests against one session
// are serialized so that two propagation passes never interleave.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/selection"
	"github.com/papapumpkin/scoreline/internal/telemetry"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Option configures a Server.
type Option func(*Server)

// WithEmitter records session events to e.
func WithEmitter(e *telemetry.Emitter) Option {
	return func(s *Server) { s.emitter = e }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithLogger sets the log output writer. Nil defaults to os.Stderr.
func WithLogger(w io.Writer) Option {
	return func(s *Server) { s.logger = w }
}

// session pairs an engine session with the lock serializing its events.
// Once closed, under mu, it rejects every further event.
type session struct {
	mu     sync.Mutex
	s      *engine.Session
	closed bool

	lastUsed atomic.Int64 // unix nanoseconds
}

func (e *session) touch() { e.lastUsed.Store(time.Now().UnixNano()) }

func (e *session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastUsed.Load()))
}

// close ends the engine session once. Callers that looked the session up
// before it was removed see ErrSessionNotFound from then on.
func (e *session) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.s.Close()
}

func (e *session) gone() error {
	return fmt.Errorf("%w: %s", ErrSessionNotFound, e.s.ID)
}

// snapshot returns the session's state, or ErrSessionNotFound once closed.
func (e *session) snapshot() (dashboard.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return dashboard.Snapshot{}, e.gone()
	}
	return dashboard.Snap(e.s), nil
}

// apply runs one selection event. An empty value clears the node.
func (e *session) apply(sel Selection) (SelectResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return SelectResponse{}, e.gone()
	}
	var (
		res *engine.Result
		err error
	)
	if sel.Value == selection.Unset {
		res, err = e.s.Clear(sel.Node)
	} else {
		res, err = e.s.Set(sel.Node, sel.Value)
	}
	if err != nil {
		return SelectResponse{}, err
	}
	return SelectResponse{Result: res, Session: dashboard.Snap(e.s)}, nil
}

// Server holds the live sessions and the dashboard new sessions start on.
type Server struct {
	mu       sync.RWMutex
	dash     *dashboard.Dashboard
	sessions map[string]*session

	emitter *telemetry.Emitter
	origins []string
	logger  io.Writer
}

// New creates a server for d.
func New(d *dashboard.Dashboard, opts ...Option) *Server {
	s := &Server{
		dash:     d,
		sessions: make(map[string]*session),
		origins:  []string{"*"},
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = os.Stderr
	}
	return s
}

// SetDashboard swaps the dashboard used for new sessions. Existing
// sessions keep the catalog they started with.
func (s *Server) SetDashboard(d *dashboard.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dash = d
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(30 * time.Second))
			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{id}", s.handleGetSession)
			r.Delete("/sessions/{id}", s.handleDeleteSession)
			r.Post("/sessions/{id}/selections", s.handleSelect)
			r.Get("/sessions/{id}/nodes/{node}/options", s.handleOptions)
		})
		// Long-lived; outside the request timeout.
		r.Get("/sessions/{id}/stream", s.handleStream)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(s.logger, "scoreline: listening on %s\n", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.closeAll()
	return nil
}

func (s *Server) create(sel []Selection) (*session, error) {
	s.mu.RLock()
	d := s.dash
	s.mu.RUnlock()

	opts := []engine.Option{engine.WithEmitter(s.emitter)}
	for _, x := range sel {
		opts = append(opts, engine.WithSelection(x.Node, x.Value))
	}
	es, err := d.NewSession(opts...)
	if err != nil {
		return nil, err
	}
	entry := &session{s: es}
	entry.touch()

	s.mu.Lock()
	s.sessions[es.ID] = entry
	s.mu.Unlock()
	return entry, nil
}

func (s *Server) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	entry.touch()
	return entry, nil
}

func (s *Server) remove(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return entry, nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		entry.close()
		delete(s.sessions, id)
	}
}
