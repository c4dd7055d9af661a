// Package server provides the HTTP REST API for the comparable finder.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/comparable-finder/internal/store"
	"github.com/jonathan/comparable-finder/internal/types"
)

// Searcher runs the comparable-company pipeline for one target.
// *finder.Finder satisfies it; tests substitute a fake.
type Searcher interface {
	Find(ctx context.Context, target types.TargetCompany) ([]types.CandidateCompany, error)
}

// Config holds server configuration.
type Config struct {
	Port     int
	Store    store.Store
	Searcher Searcher
	Logger   *zap.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	store      store.Store
	searcher   Searcher
	log        *zap.Logger
	flight     singleflight.Group
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		store:    cfg.Store,
		searcher: cfg.Searcher,
		log:      cfg.Logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withRequestID(s.withCORS(s.routes()))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // a search is up to three sequential LLM round-trips
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /history", s.handleListHistory)
	mux.HandleFunc("DELETE /history", s.handleClearHistory)
	mux.HandleFunc("GET /history/{key}", s.handleGetHistory)
	mux.HandleFunc("DELETE /history/{key}", s.handleDeleteHistory)
	mux.HandleFunc("GET /history/{key}/export", s.handleExport)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Handler exposes the fully wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.store.Close()
	s.log.Info("server stopped")
	return nil
}
