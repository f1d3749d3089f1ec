package httpservice

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/csvkit/pkg/errors"
	"github.com/yourorg/csvkit/pkg/logging"
)

// HandlerFunc is a handler function that returns an error.
type HandlerFunc func(c *gin.Context) error

// GetLogger retrieves the contextual logger from the request.
func GetLogger(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context())
}

// Wrap adapts a HandlerFunc to gin, logging entry, exit and latency and
// converting a returned error into a JSON error response. Client errors are
// logged at warn level, everything else at error level.
func Wrap(handlerName string, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c).With(logging.NewField("handler", handlerName))
		start := time.Now()

		logger.Debug("Handler started")

		err := fn(c)
		latency := logging.NewField("latency_ms", time.Since(start).Milliseconds())

		if err != nil {
			appErr := errors.FromError(err)
			if appErr.HTTPStatus < 500 {
				logger.Warn("Handler rejected request", latency, logging.NewField("error", err))
			} else {
				logger.Error("Handler failed", latency, logging.NewField("error", err))
			}
			HandleError(c, appErr)
			return
		}

		logger.Debug("Handler completed", latency)
	}
}
