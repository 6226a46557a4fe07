package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"monthcal/internal/config"
	appLog "monthcal/internal/log"
	"monthcal/internal/schedule"
)

// Refresher re-syncs ICS subscriptions. *ics.Syncer satisfies it.
type Refresher interface {
	Run(ctx context.Context) error
}

// Server exposes the calendar over a JSON HTTP API.
type Server struct {
	svc     *schedule.Service
	refresh Refresher
	mux     *http.ServeMux

	authMu sync.RWMutex
	auth   *config.BasicAuthConfig
}

// NewServer constructs a Server. refresh may be nil when no subscriptions
// are configured.
func NewServer(svc *schedule.Service, refresh Refresher, auth *config.BasicAuthConfig) *Server {
	s := &Server{
		svc:     svc,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.SetBasicAuth(auth)
	s.registerRoutes()
	return s
}

// SetBasicAuth swaps the credentials checked on every request. Nil or
// incomplete credentials disable authentication.
func (s *Server) SetBasicAuth(auth *config.BasicAuthConfig) {
	if auth != nil && (auth.Username == "" || auth.Password == "") {
		auth = nil
	}
	if auth != nil {
		c := *auth
		auth = &c
	}
	s.authMu.Lock()
	s.auth = auth
	s.authMu.Unlock()
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.basicAuthMiddleware(s.mux)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
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
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// basicAuthMiddleware guards every path except /health when credentials
// are configured.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.authMu.RLock()
		auth := s.auth
		s.authMu.RUnlock()

		if auth == nil || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, auth.Username) || !secureCompare(p, auth.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="monthcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("DELETE /api/events", s.handleClearEvents)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)

	s.mux.HandleFunc("GET /api/month", s.handleMonth)
	s.mux.HandleFunc("POST /api/conflicts", s.handleConflicts)

	s.mux.HandleFunc("GET /api/export", s.handleExport)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExportICS)
	s.mux.HandleFunc("POST /api/import", s.handleImport)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
