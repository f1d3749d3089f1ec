package telemetry

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/yourorg/csvkit/pkg/logging"
)

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// NewRelicClient wraps the New Relic agent. A disabled client is a no-op.
type NewRelicClient struct {
	app    *newrelic.Application
	logger logging.Logger
}

// NewNewRelicClient creates a new New Relic client. It is disabled when
// cfg.Enabled is false or no license key is set.
func NewNewRelicClient(cfg NewRelicConfig, logger logging.Logger) (*NewRelicClient, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		logger.Info("New Relic disabled or license key not provided")
		return &NewRelicClient{logger: logger}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	logger.Info("New Relic client initialized", logging.NewField("app_name", cfg.AppName))
	return &NewRelicClient{app: app, logger: logger}, nil
}

// Enabled reports whether data is sent to New Relic.
func (n *NewRelicClient) Enabled() bool {
	return n != nil && n.app != nil
}

// Middleware starts a web transaction per request and stores it in the
// request context, where newrelic.FromContext finds it.
func (n *NewRelicClient) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !n.Enabled() {
			c.Next()
			return
		}

		name := c.FullPath()
		if name == "" {
			name = "NotFound"
		}
		txn := n.app.StartTransaction(c.Request.Method + " " + name)
		defer txn.End()

		txn.SetWebRequestHTTP(c.Request)
		c.Request = c.Request.WithContext(newrelic.NewContext(c.Request.Context(), txn))

		c.Next()

		if requestID := c.GetString("request_id"); requestID != "" {
			txn.AddAttribute("request_id", requestID)
		}
		status := c.Writer.Status()
		txn.SetWebResponse(nil).WriteHeader(status)
		if status >= 500 {
			txn.NoticeError(fmt.Errorf("HTTP %d", status))
		}
	}
}

// Shutdown flushes pending data, waiting at most timeout.
func (n *NewRelicClient) Shutdown(timeout time.Duration) {
	if n.Enabled() {
		n.app.Shutdown(timeout)
	}
}
