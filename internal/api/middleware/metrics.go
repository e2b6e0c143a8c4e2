package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labddb/resistorlens/internal/observability/metrics"
)

// NewMetrics records request counts, latencies and response sizes per
// route template. A nil m disables recording.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			res := c.Response()
			m.RecordHTTPRequest(c.Request().Method, path, res.Status, time.Since(start), res.Size)
			return nil
		}
	}
}
