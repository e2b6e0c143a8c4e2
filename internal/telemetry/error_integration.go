package telemetry

import "github.com/labddb/resistorlens/internal/errors"

// InitializeErrorIntegration routes built EnhancedErrors to Sentry when enabled.
func InitializeErrorIntegration(enabled bool) {
	if !enabled {
		errors.SetTelemetryReporter(nil)
		return
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
}
