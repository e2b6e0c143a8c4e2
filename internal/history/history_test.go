package history

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/reading"
)

// mapStore is a minimal Store for tests.
type mapStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func quietService(store Store, opts ...Option) *Service {
	opts = append([]Option{WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil))}, opts...)
	return NewService(store, opts...)
}

func result(value string) reading.Result {
	return reading.Result{Bands: []string{"Brown", "Black", "Red"}, FormattedValue: value, Confidence: 90}
}

func TestRecordCapsAtLimitMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	svc := quietService(newMapStore())

	for i := range 8 {
		_, err := svc.Record(ctx, SourceCamera, result(fmt.Sprintf("%d", i)))
		require.NoError(t, err)
	}

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, DefaultLimit)
	assert.Equal(t, "7", entries[0].Result.FormattedValue, "first entry is the most recent")
	assert.Equal(t, "3", entries[4].Result.FormattedValue, "oldest entries are evicted")
}

func TestRecordPersistsAcrossServices(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := quietService(store, WithClock(func() time.Time { return fixed }))
	entry, err := first.Record(ctx, SourceManual, result("1k"))
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID.String())
	assert.Equal(t, fixed, entry.RecordedAt)

	second := quietService(store)
	latest, ok, err := second.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.ID, latest.ID)
	assert.Equal(t, SourceManual, latest.Source)
	assert.Equal(t, "1k", latest.Result.FormattedValue)
}

func TestRecordLogsEntryAtDebug(t *testing.T) {
	var buf bytes.Buffer
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(newMapStore(),
		WithLogger(logger.NewSlogLogger(&buf, logger.LogLevelDebug, nil)),
		WithClock(func() time.Time { return fixed }))

	_, err := svc.Record(context.Background(), SourceBands, result("1k"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"reading recorded"`)
	assert.Contains(t, out, `"source":"bands"`)
	assert.Contains(t, out, `"recorded_at":"2026-03-01T12:00:00Z"`)
}

func TestCustomLimit(t *testing.T) {
	ctx := context.Background()
	svc := quietService(newMapStore(), WithLimit(2), WithLimit(0))
	assert.Equal(t, 2, svc.Limit())

	for i := range 3 {
		_, err := svc.Record(ctx, SourceUpload, result(fmt.Sprint(i)))
		require.NoError(t, err)
	}
	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestEmptyHistory(t *testing.T) {
	ctx := context.Background()
	svc := quietService(newMapStore())

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, ok, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearKeepsUsage(t *testing.T) {
	ctx := context.Background()
	svc := quietService(newMapStore())

	_, err := svc.Record(ctx, SourceCamera, result("1k"))
	require.NoError(t, err)
	_, err = svc.IncrementUsage(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	usage, err := svc.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage)
}

func TestUsageCounterIsMonotonic(t *testing.T) {
	ctx := context.Background()
	svc := quietService(newMapStore())

	usage, err := svc.Usage(ctx)
	require.NoError(t, err)
	assert.Zero(t, usage)

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			_, err := svc.IncrementUsage(ctx)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	usage, err = svc.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), usage)
}

func TestCorruptBlobIsReported(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.data[HistoryKey] = []byte("{not json")
	store.data[UsageKey] = []byte("many")
	svc := quietService(store)

	_, err := svc.List(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))

	_, err = svc.Record(ctx, SourceCamera, result("1k"))
	require.Error(t, err, "corrupt history is never silently replaced")

	_, err = svc.Usage(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestStoreFailureIsDatabaseError(t *testing.T) {
	ctx := context.Background()
	store := newMapStore()
	store.setErr = errors.NewStd("disk full")
	svc := quietService(store)

	_, err := svc.Record(ctx, SourceCamera, result("1k"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Contains(t, err.Error(), "disk full")
}
