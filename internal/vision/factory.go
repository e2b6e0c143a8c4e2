package vision

import (
	"context"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/observability/metrics"
)

// rateLimitBurst lets a short series of retakes through before throttling.
const rateLimitBurst = 3

// NewFromSettings builds the analyzer chain: cache, then rate limit, then
// Gemini. When the client cannot be created the returned analyzer reports
// ErrNotConfigured on every call, so manual mode keeps working.
func NewFromSettings(ctx context.Context, settings *conf.Settings, m *metrics.VisionMetrics, log logger.Logger) Analyzer {
	if log == nil {
		log = logger.Global().Module(componentName)
	}

	gemini, err := NewGeminiAnalyzer(ctx, GeminiConfig{
		APIKey:         settings.Vision.APIKey,
		Model:          settings.Vision.Model,
		ThinkingBudget: settings.Vision.ThinkingBudget,
		Timeout:        settings.Vision.Timeout,
		Metrics:        m,
	}, log)
	if err != nil {
		log.Warn("vision analysis disabled", logger.Error(err))
		return unavailable(err.Error())
	}

	var analyzer Analyzer = WithRateLimit(gemini, settings.Vision.RequestsPerMinute, rateLimitBurst, m)
	if settings.Vision.CacheTTL > 0 {
		analyzer = NewCachedAnalyzer(analyzer, settings.Vision.CacheTTL, m)
	}

	log.Debug("vision analyzer ready",
		logger.String("model", gemini.Model()),
		logger.Int("requests_per_minute", settings.Vision.RequestsPerMinute),
		logger.Duration("cache_ttl", settings.Vision.CacheTTL))
	return analyzer
}
