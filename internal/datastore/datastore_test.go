package datastore

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/reading"
)

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// setupTestDB opens an in-memory SQLite database with the schema applied.
func setupTestDB(t *testing.T) *DataStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig(quietLogger()))
	require.NoError(t, err)
	// Every pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, performAutoMigration(db, nil, "SQLite", ":memory:"))

	ds := &DataStore{DB: db, Logger: quietLogger()}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// exerciseStore runs the contract every history.Store must satisfy.
func exerciseStore(t *testing.T, store history.Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", []byte("one")))
	require.NoError(t, store.Set(ctx, "k", []byte("two")))

	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("two"), value)

	value[0] = 'X'
	again, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), again, "returned slices must not alias stored data")
}

func TestGormStoreContract(t *testing.T) {
	exerciseStore(t, setupTestDB(t))
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore(0))
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(20 * time.Millisecond)
	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	assert.Eventually(t, func() bool {
		_, found, err := store.Get(ctx, "k")
		return err == nil && !found
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewMemoryStore(0)
	require.ErrorIs(t, store.Set(ctx, "k", nil), context.Canceled)
	_, _, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreRejectsEmptyKey(t *testing.T) {
	ds := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ds.Set(ctx, "k", []byte("v")))
	_, _, err := ds.Get(ctx, "")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestClosedStoreReturnsDatabaseError(t *testing.T) {
	ds := &DataStore{}
	_, _, err := ds.Get(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	require.NoError(t, ds.Close())
}

func TestHistoryOverSQLiteFile(t *testing.T) {
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "data", "history.db")

	open := func() Interface {
		store := New(settings)
		require.Equal(t, "sqlite", store.Kind())
		require.NoError(t, store.Open())
		return store
	}

	ctx := context.Background()
	store := open()
	svc := history.NewService(store, history.WithLogger(quietLogger()))
	for i := range 7 {
		_, err := svc.Record(ctx, history.SourceCamera, reading.Result{FormattedValue: fmt.Sprint(i)})
		require.NoError(t, err)
	}
	_, err := svc.IncrementUsage(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen to prove durability across sessions.
	store = open()
	t.Cleanup(func() { _ = store.Close() })
	svc = history.NewService(store, history.WithLogger(quietLogger()))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, history.DefaultLimit)
	assert.Equal(t, "6", entries[0].Result.FormattedValue)

	usage, err := svc.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage)
}

func TestNewSelectsBackend(t *testing.T) {
	settings := &conf.Settings{}
	assert.Equal(t, "memory", New(settings).Kind())

	settings.Output.MySQL.Enabled = true
	assert.Equal(t, "mysql", New(settings).Kind())
}

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "plain password", password: "secret"},
		{name: "password with separators", password: "p@ss:w/rd?x=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := &conf.Settings{}
			settings.Output.MySQL.Username = "user"
			settings.Output.MySQL.Password = tt.password
			settings.Output.MySQL.Host = "db"
			settings.Output.MySQL.Port = "3306"
			settings.Output.MySQL.Database = "lens"

			store := &MySQLStore{Settings: settings}
			dsn := store.dsn()
			assert.Contains(t, dsn, "charset=utf8mb4")

			cfg, err := mysqldriver.ParseDSN(dsn)
			require.NoError(t, err)

			assert.Equal(t, "user", cfg.User)
			assert.Equal(t, tt.password, cfg.Passwd)
			assert.Equal(t, "tcp", cfg.Net)
			assert.Equal(t, "db:3306", cfg.Addr)
			assert.Equal(t, "lens", cfg.DBName)
			assert.True(t, cfg.ParseTime)
			assert.Equal(t, time.UTC, cfg.Loc)
		})
	}
}

func TestConcurrentSetsOnSQLite(t *testing.T) {
	ds := setupTestDB(t)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			assert.NoError(t, ds.Set(ctx, fmt.Sprintf("k%d", i%3), []byte{byte(i)}))
		})
	}
	wg.Wait()

	var count int64
	require.NoError(t, ds.DB.Model(&KeyValue{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

type fakeRecorder struct {
	mu         sync.Mutex
	operations map[string]int
	errors     map[string]int
	durations  int
}

func (f *fakeRecorder) RecordOperation(operation, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.operations[operation+"/"+status]++
}

func (f *fakeRecorder) RecordDuration(string, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations++
}

func (f *fakeRecorder) RecordError(operation, errorType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[operation+"/"+errorType]++
}

func TestInstrumentReportsOperations(t *testing.T) {
	rec := &fakeRecorder{operations: map[string]int{}, errors: map[string]int{}}
	store := Instrument(NewMemoryStore(0), rec)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))
	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "memory", store.Kind())

	closed := Instrument(&SQLiteStore{DataStore: DataStore{Logger: quietLogger()}}, rec)
	_, _, err = closed.Get(ctx, "k")
	require.Error(t, err)

	assert.Equal(t, 1, rec.operations["set/success"])
	assert.Equal(t, 1, rec.operations["get/success"])
	assert.Equal(t, 1, rec.operations["get/error"])
	assert.Equal(t, 1, rec.errors["get/database"])
	assert.Equal(t, 3, rec.durations)
}

func TestInstrumentWithoutRecorder(t *testing.T) {
	store := NewMemoryStore(0)
	assert.Same(t, store, Instrument(store, nil))
}
