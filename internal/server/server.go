// Package server exposes the question pipeline over HTTP. Cookie-backed
// session IDs map to pipeline sessions; turns within one session are
// serialized with a per-session mutex, sessions run independently.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/askdb-labs/askdb/internal/convo"
	"github.com/askdb-labs/askdb/internal/pipeline"
)

const (
	sessionCookie = "askdb_session"

	// sessionTTL bounds both the cookie lifetime and how long an idle
	// conversation stays in the registry.
	sessionTTL = 7 * 24 * time.Hour
)

// Asker is the pipeline surface the server needs.
type Asker interface {
	Ask(ctx context.Context, session *convo.Session, question string) (*pipeline.Response, error)
}

// Config holds server settings.
type Config struct {
	Pipeline Asker
	Port     int

	// SessionSecret signs the session cookies.
	SessionSecret string

	// Watch enables re-ingestion when the schema docs file changes.
	Watch     bool
	WatchPath string
	Reingest  func(ctx context.Context) error

	Logger *slog.Logger
}

// sessionState pairs a conversation with the mutex that serializes its
// turns.
type sessionState struct {
	mu      sync.Mutex
	session *convo.Session

	// lastSeen is guarded by the server's registry mutex, not mu.
	lastSeen time.Time
}

// Server is the HTTP API server.
type Server struct {
	cfg          Config
	sessionStore *sessions.CookieStore
	logger       *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(int(sessionTTL.Seconds()))
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		cfg:          cfg,
		sessionStore: sessionStore,
		logger:       cfg.Logger,
		sessions:     make(map[string]*sessionState),
	}
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers without binding a port.
func (s *Server) Routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Post("/chat", s.handleChat)
	r.Get("/history", s.handleHistory)
	r.Delete("/history", s.handleResetHistory)
	r.Get("/health", s.handleHealth)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch && s.cfg.WatchPath != "" && s.cfg.Reingest != nil {
		eg.Go(func() error {
			return s.watchSchemaDocs(egctx)
		})
	}

	eg.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-ticker.C:
				if n := s.evictIdleSessions(time.Now()); n > 0 {
					s.logger.Debug("evicted idle sessions", "count", n)
				}
			}
		}
	})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// resolveSession returns the per-session state for the request, minting
// a cookie for new visitors.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) *sessionState {
	cookie, _ := s.sessionStore.Get(r, sessionCookie)

	sid, ok := cookie.Values["sid"].(string)
	if !ok || sid == "" {
		sid = uuid.New().String()
		cookie.Values["sid"] = sid
		if err := cookie.Save(r, w); err != nil {
			s.logger.Warn("failed to save session cookie", "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sid]
	if !ok {
		state = &sessionState{session: convo.NewSessionWithID(sid)}
		s.sessions[sid] = state
	}
	state.lastSeen = time.Now()
	return state
}

// evictIdleSessions drops conversations idle longer than the session
// TTL, matching the cookie expiry. Returns the number evicted.
func (s *Server) evictIdleSessions(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for sid, state := range s.sessions {
		if now.Sub(state.lastSeen) > sessionTTL {
			delete(s.sessions, sid)
			evicted++
		}
	}
	return evicted
}

// watchSchemaDocs re-ingests the schema index when the docs file
// changes. Events are debounced; editors fire several per save.
func (s *Server) watchSchemaDocs(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.cfg.WatchPath)); err != nil {
		s.logger.Error("failed to watch schema docs", "path", s.cfg.WatchPath, "error", err)
		return nil
	}
	s.logger.Info("watching schema docs for changes", "path", s.cfg.WatchPath)

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.cfg.WatchPath) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				s.logger.Info("schema docs changed, re-ingesting")
				if err := s.cfg.Reingest(ctx); err != nil {
					s.logger.Error("re-ingest failed", "error", err)
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
