// Package httpapi exposes the question answering pipeline over HTTP.
// It is the boundary the chat widget talks to.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/music-assist/backend/internal/core/domain"
	"github.com/music-assist/backend/internal/core/ports/driving"
	"github.com/music-assist/backend/internal/logger"
)

// Default server configuration.
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 180 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
)

// Config holds HTTP server configuration.
type Config struct {
	// Host is the listen address (default: 0.0.0.0).
	Host string

	// Port is the listen port (default: 8080).
	Port int

	// AdminKey protects the ingestion endpoint. When empty, the
	// endpoint is disabled entirely.
	AdminKey string

	// Mode selects the gin mode; "release" silences gin's debug output.
	Mode string

	// Version is reported by the health endpoint.
	Version string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	return c
}

// Server serves the chat, stats and ingestion endpoints.
type Server struct {
	cfg      Config
	router   *gin.Engine
	server   *http.Server
	answers  driving.AnswerService
	stats    driving.StatsService
	ingestor driving.IngestService
}

// chatRequest is the POST /chat request body.
type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// chatResponse is the POST /chat response body.
type chatResponse struct {
	Response       string          `json:"response"`
	Sources        []domain.Source `json:"sources"`
	ConversationID string          `json:"conversation_id"`
	Timestamp      string          `json:"timestamp"`
}

// ingestRequest is the POST /ingest request body.
type ingestRequest struct {
	Documents []ingestDocument `json:"documents" binding:"required"`
}

// ingestDocument mirrors the crawler's JSON document format.
type ingestDocument struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewServer creates the HTTP server over the given services.
func NewServer(
	cfg Config,
	answers driving.AnswerService,
	stats driving.StatsService,
	ingestor driving.IngestService,
) *Server {
	cfg = cfg.withDefaults()

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		router:   gin.New(),
		answers:  answers,
		stats:    stats,
		ingestor: ingestor,
	}

	s.router.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/stats", s.handleStats)
	s.router.POST("/chat", s.handleChat)

	if s.cfg.AdminKey != "" {
		s.router.POST("/ingest", s.requireAdminKey(), s.handleIngest)
	}
}

// Router returns the underlying gin router, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	logger.Info("HTTP server listening on %s", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops the server, waiting for in-flight requests
// up to the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// handleHealth reports liveness.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   s.cfg.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStats reports corpus and pipeline statistics.
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.stats.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleChat answers one user message.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	answer, err := s.answers.Answer(c.Request.Context(), req.Message, req.ConversationID)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:       answer.Text,
		Sources:        answer.Sources,
		ConversationID: answer.ConversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIngest accepts crawled documents for (re-)indexing.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documents array is required"})
		return
	}

	raws := make([]driving.RawDocument, len(req.Documents))
	for i, doc := range req.Documents {
		raws[i] = driving.RawDocument{
			SourceURL: doc.URL,
			Title:     doc.Title,
			RawText:   doc.Content,
			FetchedAt: doc.Timestamp,
		}
	}

	report, err := s.ingestor.IngestBatch(c.Request.Context(), raws)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// requireAdminKey rejects ingestion requests without the admin key.
func (s *Server) requireAdminKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Key") != s.cfg.AdminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin key"})
			return
		}
		c.Next()
	}
}

// fail maps domain errors onto HTTP status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEmptyContent):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrGeneration):
		status = http.StatusBadGateway
	}

	logger.Warn("Request failed (%d): %v", status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}
