package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driven"
	"github.com/leohan123123/blueprint-core/internal/core/ports/driving"
)

// Server is the HTTP surface the document-assistant UI consumes
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	ingestService    driving.IngestService
	answerService    driving.AnswerService
	knowledgeService driving.KnowledgeService
	settingsService  driving.SettingsService

	// Infrastructure
	conversations driven.ConversationStore
	runtimeConfig *domain.RuntimeConfig
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ingestService driving.IngestService,
	answerService driving.AnswerService,
	knowledgeService driving.KnowledgeService,
	settingsService driving.SettingsService,
	conversations driven.ConversationStore,
	runtimeConfig *domain.RuntimeConfig,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		logger:           logger.With("component", "http"),
		ingestService:    ingestService,
		answerService:    answerService,
		knowledgeService: knowledgeService,
		settingsService:  settingsService,
		conversations:    conversations,
		runtimeConfig:    runtimeConfig,
	}

	s.setupRoutes()

	logging := NewLoggingMiddleware(logger)
	recovery := NewRecoveryMiddleware(logger)
	cors := NewCORSMiddleware(cfg.AllowedOrigins)
	handler := recovery.Handler(logging.Handler(cors.Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // chat generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Knowledge base
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.HandleFunc("POST /api/v1/documents", s.handleIngestDocument)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleRemoveDocument)

	// Question answering
	s.router.HandleFunc("POST /api/v1/ask", s.handleAsk)

	// Conversation sessions
	s.router.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	s.router.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)

	// AI settings
	s.router.HandleFunc("GET /api/v1/settings/ai", s.handleGetAISettings)
	s.router.HandleFunc("PUT /api/v1/settings/ai", s.handleUpdateAISettings)
	s.router.HandleFunc("GET /api/v1/settings/ai/status", s.handleGetAIStatus)
	s.router.HandleFunc("GET /api/v1/providers", s.handleListProviders)
}

// Handler returns the fully wrapped handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
