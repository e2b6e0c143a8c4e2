package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/labddb/resistorlens/internal/logger"
)

// slowQueryThreshold marks statements worth a warning.
const slowQueryThreshold = 200 * time.Millisecond

// gormConfig routes GORM's logging through the datastore module logger.
func gormConfig(log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	}
}

// performAutoMigration creates or updates the key/value table.
func performAutoMigration(db *gorm.DB, log logger.Logger, dbType, connInfo string) error {
	if err := db.AutoMigrate(&KeyValue{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}
	if log != nil {
		log.Debug("database migrated",
			logger.String("type", dbType),
			logger.String("connection", connInfo))
	}
	return nil
}
