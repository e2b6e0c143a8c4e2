// Package datastore persists the reading history as key/value pairs.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/history"
	"github.com/labddb/resistorlens/internal/logger"
)

// Interface is a history.Store with a connection lifecycle.
type Interface interface {
	history.Store
	Open() error
	Close() error
	// Kind names the backend for logs and health output.
	Kind() string
}

// DataStore implements the key/value operations on a GORM database.
type DataStore struct {
	DB     *gorm.DB
	Logger logger.Logger
}

// New returns the store selected by settings: SQLite, MySQL, or in-memory
// when neither database is enabled. The store still has to be opened.
func New(settings *conf.Settings) Interface {
	log := logger.Global().Module("datastore")
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{DataStore: DataStore{Logger: log}, Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{DataStore: DataStore{Logger: log}, Settings: settings}
	default:
		return NewMemoryStore(0)
	}
}

// Get returns the value stored under key.
func (ds *DataStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if ds.DB == nil {
		return nil, false, errNotOpen("get")
	}
	// An empty key would turn the struct condition into a full scan.
	if key == "" {
		return nil, false, errEmptyKey()
	}

	var kv KeyValue
	result := ds.DB.WithContext(ctx).Where(&KeyValue{Key: key}).Limit(1).Find(&kv)
	if result.Error != nil {
		return nil, false, dbError(result.Error, "get", key)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return kv.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (ds *DataStore) Set(ctx context.Context, key string, value []byte) error {
	if ds.DB == nil {
		return errNotOpen("set")
	}
	if key == "" {
		return errEmptyKey()
	}

	kv := KeyValue{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := ds.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return dbError(err, "set", key)
	}
	return nil
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	ds.DB = nil
	return nil
}

func errNotOpen(op string) error {
	return errors.New(errors.NewStd("database connection is not initialized")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Build()
}

func errEmptyKey() error {
	return errors.New(errors.NewStd("empty key")).
		Component("datastore").
		Category(errors.CategoryValidation).
		Build()
}

func dbError(err error, op, key string) error {
	return errors.New(fmt.Errorf("%s %q: %w", op, key, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("key", key).
		Build()
}
