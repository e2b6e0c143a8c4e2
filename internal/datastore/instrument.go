package datastore

import (
	"context"
	"time"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/observability/metrics"
)

// instrumented records operation counts and latencies for any backend.
type instrumented struct {
	Interface
	recorder metrics.Recorder
}

// Instrument wraps store so every Get and Set is reported to recorder.
// A nil recorder returns store unchanged.
func Instrument(store Interface, recorder metrics.Recorder) Interface {
	if recorder == nil {
		return store
	}
	return &instrumented{Interface: store, recorder: recorder}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, found, err := i.Interface.Get(ctx, key)
	i.observe("get", start, err)
	return value, found, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.Interface.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) observe(operation string, start time.Time, err error) {
	i.recorder.RecordOperation(operation, metrics.StatusOf(err))
	i.recorder.RecordDuration(operation, time.Since(start).Seconds())
	if err == nil {
		return
	}
	category := errors.CategoryGeneric
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		category = ee.Category
	}
	i.recorder.RecordError(operation, string(category))
}
