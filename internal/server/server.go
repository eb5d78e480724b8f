// Package server provides the HTTP REST API for the CV analysis service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autodoc/cv-analyzer/internal/types"
)

// DocumentClassifier analyzes raw document bytes and reports whether they
// form a CV, extracting the structured data when they do.
type DocumentClassifier interface {
	Classify(ctx context.Context, content []byte, mimeType string) (*types.Classification, error)
}

// SearchRanker scores stored candidates against a recruiter query.
type SearchRanker interface {
	Rank(ctx context.Context, query string, candidates []types.CandidateRecord) []types.SearchMatch
}

// CatalogStore is the persistence surface the handlers depend on.
type CatalogStore interface {
	Append(ctx context.Context, cv types.CVData, filename string) (uuid.UUID, error)
	List(ctx context.Context, searchQuery string) []types.CandidateSummary
	ListFull(ctx context.Context) []types.CandidateRecord
	Get(ctx context.Context, id uuid.UUID) *types.CandidateRecord
	Delete(ctx context.Context, id uuid.UUID) bool
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	classifier DocumentClassifier
	ranker     SearchRanker
	store      CatalogStore
	log        *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance
func New(cfg Config, classifier DocumentClassifier, ranker SearchRanker, store CatalogStore, log *zap.Logger) *Server {
	s := &Server{
		classifier: classifier,
		ranker:     ranker,
		store:      store,
		log:        log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /cvs", s.handleListCVs)
	mux.HandleFunc("GET /cvs/{id}", s.handleGetCV)
	mux.HandleFunc("DELETE /cvs/{id}", s.handleDeleteCV)
	mux.HandleFunc("POST /search/smart", s.handleSmartSearch)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Model calls can run long
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	// Graceful shutdown
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

	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status, including catalog reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	catalog := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		catalog = "unreachable"
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "catalog": catalog})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encoding JSON response failed", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
