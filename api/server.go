// Package api exposes the pipeline over HTTP: submit a generation request,
// poll run status, inspect configuration, clear the cache.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipforge/cache"
	"clipforge/config"
	"clipforge/pipeline"
)

// Server wires the orchestrator and tracker into HTTP handlers.
type Server struct {
	cfg     config.Config
	orch    *pipeline.Orchestrator
	tracker *pipeline.Tracker
	cache   *cache.Cache
}

func NewServer(cfg config.Config, orch *pipeline.Orchestrator, tracker *pipeline.Tracker, c *cache.Cache) *Server {
	return &Server{cfg: cfg, orch: orch, tracker: tracker, cache: c}
}

// Router constructs a Gin engine with registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	g := r.Group("/api")
	g.POST("/generate", s.handleGenerate)
	g.GET("/status/:id", s.handleStatus)
	g.GET("/runs", s.handleRuns)
	g.GET("/config", s.handleConfig)
	g.DELETE("/cache", s.handleClearCache)

	r.GET("/health", s.handleHealth)
	return r
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// handleGenerate starts a pipeline run asynchronously and returns its ID.
func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The run outlives the request, so it must not inherit its context.
	id := s.orch.Start(context.Background(), req.Topic)
	c.JSON(http.StatusAccepted, gin.H{
		"run_id": id,
		"status": "started",
	})
}

// handleStatus returns a snapshot of one run.
func (s *Server) handleStatus(c *gin.Context) {
	run := s.tracker.Get(c.Param("id"))
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleRuns lists all tracked runs, newest first.
func (s *Server) handleRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": s.tracker.List()})
}

// handleConfig returns the resolved configuration with secrets redacted.
func (s *Server) handleConfig(c *gin.Context) {
	redacted := s.cfg
	redacted.LLM.APIKey = redact(redacted.LLM.APIKey)
	redacted.Voice.APIKey = redact(redacted.Voice.APIKey)
	redacted.Search.GoogleAPIKey = redact(redacted.Search.GoogleAPIKey)
	c.JSON(http.StatusOK, redacted)
}

// handleClearCache drops cache entries, optionally scoped to one capability
// or stage via ?scope=.
func (s *Server) handleClearCache(c *gin.Context) {
	scope := c.Query("scope")
	if err := s.cache.Clear(c.Request.Context(), scope); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "scope": scope})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func redact(key string) string {
	if key == "" {
		return ""
	}
	return "••••"
}
