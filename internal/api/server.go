package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/labddb/resistorlens/internal/api/middleware"
	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/scanner"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second

// Server is the HTTP server for the API.
type Server struct {
	echo       *echo.Echo
	settings   *conf.Settings
	controller *Controller
	log        logger.Logger
}

// NewServer builds the echo instance, its middleware and the API routes.
func NewServer(settings *conf.Settings, svc *scanner.Service, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = settings.WebServer.Debug

	s := &Server{
		echo:       e,
		settings:   settings,
		controller: New(e, settings, svc, opts...),
	}
	s.log = s.controller.log
	e.Logger = logger.NewEchoLoggerAdapter(s.log.Module("echo"))

	var httpMetrics *metrics.HTTPMetrics
	if s.controller.metrics != nil {
		httpMetrics = s.controller.metrics.HTTP
	}
	s.setupMiddleware(httpMetrics)
	return s
}

func (s *Server) setupMiddleware(m *metrics.HTTPMetrics) {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	s.echo.Use(mw.NewMetrics(m))
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return strings.HasSuffix(c.Path(), "/metrics")
	}))

	security := mw.DefaultSecurityConfig()
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewBodyLimit(s.settings.WebServer.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(security))
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Controller returns the API controller.
func (s *Server) Controller() *Controller {
	return s.controller
}

// Run serves on the configured listen address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.settings.WebServer.Listen
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()
	s.log.Info("HTTP API listening", logger.String("address", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("operation", "listen").
			Context("address", addr).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down HTTP API")
	err := s.echo.Shutdown(shutdownCtx)
	if startErr := <-errCh; startErr != nil && !errors.Is(startErr, http.ErrServerClosed) && err == nil {
		err = startErr
	}
	return err
}
