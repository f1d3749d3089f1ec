package httpservice

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
	"github.com/yourorg/csvkit/pkg/utils"
)

const (
	// RequestIDKey is the gin context key holding the request ID.
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request ID in and out.
	RequestIDHeader = "X-Request-ID"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RPS   float64 // Requests per second
	Burst int     // Maximum burst size
	// IdleTimeout is how long a silent client keeps its limiter. Default 3m.
	IdleTimeout time.Duration
	// Done stops the cleanup goroutine when closed. A nil Done keeps it
	// running for the life of the process.
	Done <-chan struct{}
}

type ipLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*rateClient
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 3 * time.Minute
	}
	return &ipLimiter{cfg: cfg, clients: make(map[string]*rateClient)}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, found := l.clients[ip]
	if !found {
		cl = &rateClient{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

func (l *ipLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, cl := range l.clients {
		if time.Since(cl.lastSeen) > l.cfg.IdleTimeout {
			delete(l.clients, ip)
		}
	}
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// cleanup forgets idle clients every interval until done is closed.
func (l *ipLimiter) cleanup(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// RateLimitMiddleware limits the number of requests per second per IP.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	limiter := newIPLimiter(cfg)
	go limiter.cleanup(cfg.Done, time.Minute)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// RequestSizeLimitMiddleware limits the maximum size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			logger.Warn("Request body too large",
				logging.NewField("content_length", c.Request.ContentLength),
				logging.NewField("max_bytes", maxBytes),
				logging.NewField("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Request body too large",
				"code":  errors.ErrorCodeBadRequest,
			})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security-related headers to responses.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// RequestIDMiddleware reuses the caller's X-Request-ID or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = utils.GenerateRequestID()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// ContextLoggerMiddleware attaches a logger carrying the service name and
// request ID to the request context.
func ContextLoggerMiddleware(baseLogger logging.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := []logging.Field{
			logging.NewField("service", serviceName),
		}
		if requestID := GetRequestID(c); requestID != "" {
			fields = append(fields, logging.NewField("request_id", requestID))
		}

		ctx := logging.WithLogger(c.Request.Context(), baseLogger.With(fields...))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggingMiddleware logs HTTP requests with structured logging.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		fields := []logging.Field{
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", path),
			logging.NewField("status", c.Writer.Status()),
			logging.NewField("latency_ms", time.Since(start).Milliseconds()),
			logging.NewField("bytes", c.Writer.Size()),
			logging.NewField("ip", c.ClientIP()),
			logging.NewField("user_agent", c.Request.UserAgent()),
		}
		if raw != "" {
			fields = append(fields, logging.NewField("query", raw))
		}

		logger := logging.FromContext(c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// RecoveryMiddleware recovers from panics and logs the error.
func RecoveryMiddleware(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			logging.NewField("error", recovered),
			logging.NewField("path", c.Request.URL.Path),
			logging.NewField("method", c.Request.Method),
		)

		appErr := errors.NewInternalError("Internal server error")
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
	})
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// CORSMiddleware adds CORS headers with configuration.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	headers := "Content-Type, Content-Length, Accept, Authorization, X-Request-ID"
	if len(cfg.AllowedHeaders) > 0 {
		headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	methods := "GET, POST, OPTIONS"
	if len(cfg.AllowedMethods) > 0 {
		methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	allowAll := len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowed := false

		if allowAll {
			allowed = true
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					allowed = true
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Add("Vary", "Origin")
					break
				}
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Headers", headers)
			c.Writer.Header().Set("Access-Control-Allow-Methods", methods)
			c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID, X-Row-Count")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
