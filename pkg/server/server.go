// Package server exposes the zone knowledge graph over a read-only HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/config"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/server/handlers"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	router      *gin.Engine
	client      driver.GraphClient
	checkpoints *checkpoint.CheckpointManager
	server      *http.Server
	logger      *slog.Logger
}

// New creates a new server instance. checkpoints may be nil, in which case
// the run status routes are not registered.
func New(cfg *config.Config, client driver.GraphClient, checkpoints *checkpoint.CheckpointManager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:      cfg,
		client:      client,
		checkpoints: checkpoints,
		logger:      logger,
	}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()
	s.router.Use(requestLogger(s.logger))
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())
	s.router.Use(contextMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes sets up all the routes
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.client)

	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/healthcheck", healthHandler.HealthCheck) // Legacy endpoint
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck) // Kubernetes liveness probe
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	v1 := s.router.Group("/api/v1")
	if s.client != nil {
		retrieveHandler := handlers.NewRetrieveHandler(s.client)
		v1.POST("/search", retrieveHandler.Search)
		v1.GET("/search", retrieveHandler.Search)
		v1.GET("/entities/:name/relationships", retrieveHandler.GetRelationships)
		v1.GET("/entities/:name/timeline", retrieveHandler.GetTimeline)
		v1.GET("/stats", retrieveHandler.GetStats)
	}
	if s.checkpoints != nil {
		runsHandler := handlers.NewRunsHandler(s.checkpoints)
		v1.GET("/runs", runsHandler.ListRuns)
		v1.GET("/runs/:run_id", runsHandler.GetRun)
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("Starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request through slog in place of gin's default writer.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// contextMiddleware tags the request context so telemetry records can be
// traced back to the HTTP surface.
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), types.ContextKeyRequestSource, "server")
		if runID := c.GetHeader("X-Run-ID"); runID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyRunID, runID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
