package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phantomx-ai/phantomx/internal/auth"
	"github.com/phantomx-ai/phantomx/internal/config"
	"github.com/phantomx-ai/phantomx/internal/logger"
	"github.com/phantomx-ai/phantomx/internal/pipeline"
)

// maxHistoryLimit bounds /api/history regardless of the requested limit.
const maxHistoryLimit = 500

// Server wraps the HTTP server components for PhantomX.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config
	auth       *auth.Auth
	pipeline   *pipeline.Pipeline
	log        *logger.Logger
}

// New creates a new PhantomX server with all routes registered.
func New(cfg *config.Config, authz *auth.Auth, p *pipeline.Pipeline, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:   gin.New(),
		cfg:      cfg,
		auth:     authz,
		pipeline: p,
		log:      log.WithComponent("server"),
	}

	s.engine.Use(s.recovery())
	s.engine.Use(requestID())
	s.engine.Use(cors(cfg.Server.CORSOrigins))
	s.engine.Use(s.requestLogger())

	// Routes
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/readyz", s.handleReady)

	api := s.engine.Group("/api", s.requireAPIKey())
	api.POST("/speech-to-text", s.handleSpeechToText)
	api.POST("/detect-intent", s.handleDetectIntent)
	api.POST("/detect-deepfake", s.handleDetectDeepfake)
	api.POST("/classify-call", s.handleClassifyCall)
	api.POST("/analyze-call", s.handleAnalyzeCall)
	api.GET("/history", s.handleHistory)
	api.GET("/results/:id", s.handleResult)
	api.POST("/feedback", s.handleFeedback)
	api.GET("/stats", s.handleStats)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on addr and serves until Shutdown is called. A Shutdown that
// happens before Start makes Start return nil without serving.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("http server listening", logger.Fields("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
