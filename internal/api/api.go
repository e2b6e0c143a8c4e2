// Package api exposes the scanner over HTTP.
package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labddb/resistorlens/internal/buildinfo"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability"
	"github.com/labddb/resistorlens/internal/scanner"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	Scanner  *scanner.Service

	build     *buildinfo.Context
	metrics   *observability.Metrics
	log       logger.Logger
	startTime time.Time
	// visionReady reports whether a real analyzer is configured.
	visionReady bool
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithBuildInfo sets the version reported by /health.
func WithBuildInfo(b *buildinfo.Context) Option {
	return func(c *Controller) { c.build = b }
}

// WithMetrics mounts /metrics on the API unless a dedicated telemetry
// listener is enabled.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithVisionReady tells /health whether image scans can succeed.
func WithVisionReady(ready bool) Option {
	return func(c *Controller) { c.visionReady = ready }
}

// New registers the /api/v1 routes on e.
func New(e *echo.Echo, settings *conf.Settings, svc *scanner.Service, opts ...Option) *Controller {
	c := &Controller{
		Echo:      e,
		Settings:  settings,
		Scanner:   svc,
		log:       logger.Global().Module("api"),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	e.HTTPErrorHandler = c.errorHandler
	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/colors", c.ListColors)
	c.Group.POST("/decode", c.Decode)
	c.Group.POST("/scan", c.Scan)

	c.Group.GET("/manual", c.GetManual)
	c.Group.PUT("/manual", c.UpdateManual)
	c.Group.POST("/manual/activate", c.ActivateManual)
	c.Group.POST("/manual/save", c.SaveManual)
	c.Group.POST("/manual/reset", c.ResetManual)

	c.Group.GET("/history", c.GetHistory)
	c.Group.DELETE("/history", c.ClearHistory)
	c.Group.GET("/usage", c.GetUsage)

	if c.metrics != nil && (c.Settings == nil || !c.Settings.Telemetry.Enabled) {
		c.Group.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}
