package vision

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/observability/metrics"
	"github.com/labddb/resistorlens/internal/reading"
)

type rateLimited struct {
	next    Analyzer
	limiter *rate.Limiter
	metrics *metrics.VisionMetrics
}

// WithRateLimit allows perMinute calls per minute with the given burst.
// A call waits for its turn; when the context would expire first it fails
// with ErrQuotaExceeded. perMinute <= 0 returns next unchanged.
func WithRateLimit(next Analyzer, perMinute, burst int, m *metrics.VisionMetrics) Analyzer {
	if perMinute <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
		metrics: m,
	}
}

func (r *rateLimited) Analyze(ctx context.Context, img Image) (reading.Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return reading.Result{}, newError(ErrAnalysisFailed, ctxErr, errors.CategoryCancellation, "rate_limit")
		}
		r.metrics.IncrementRateLimited()
		return reading.Result{}, newError(ErrQuotaExceeded, err, errors.CategoryQuota, "rate_limit")
	}
	return r.next.Analyze(ctx, img)
}
