package httpservice

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/csvkit/pkg/logging"
)

// Server wraps a Gin server with configuration and middleware.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	port       int
	done       chan struct{}
	stopOnce   sync.Once
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Logger       logging.Logger
	// ServiceName is attached to every request log line.
	ServiceName string
	// Security configuration
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxBodySize    int64 // bytes; 0 disables the limit
	// Middleware runs after request ID and logging setup, before any handler.
	Middleware []gin.HandlerFunc
}

// Handler defines an interface for registering HTTP handlers.
type Handler interface {
	Register(router *gin.Engine)
}

// NewServer creates a new HTTP server with the provided configuration and handlers.
func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	done := make(chan struct{})
	router := gin.New()
	router.Use(RecoveryMiddleware(cfg.Logger))
	if cfg.MaxBodySize > 0 {
		router.Use(RequestSizeLimitMiddleware(cfg.MaxBodySize, cfg.Logger))
	}
	router.Use(RequestIDMiddleware())
	router.Use(ContextLoggerMiddleware(cfg.Logger, cfg.ServiceName))
	router.Use(LoggingMiddleware())
	router.Use(cfg.Middleware...)
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
	}))
	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
			Done:  done,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for _, handler := range handlers {
		handler.Register(router)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		logger:     cfg.Logger,
		port:       cfg.Port,
		done:       done,
	}, nil
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.NewField("port", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server and stops its background
// workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.stopOnce.Do(func() { close(s.done) })
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}
