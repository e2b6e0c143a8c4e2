package datastore

import (
	"fmt"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/labddb/resistorlens/internal/conf"
	"github.com/labddb/resistorlens/internal/errors"
	"github.com/labddb/resistorlens/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// Kind returns "mysql".
func (store *MySQLStore) Kind() string { return "mysql" }

// dsn builds the connection string from settings. Passwords containing
// '@', ':' or '/' survive the round trip through the driver's parser.
func (store *MySQLStore) dsn() string {
	m := store.Settings.Output.MySQL
	cfg := mysqldriver.Config{
		User:                 m.Username,
		Passwd:               m.Password,
		Net:                  "tcp",
		Addr:                 net.JoinHostPort(m.Host, m.Port),
		DBName:               m.Database,
		ParseTime:            true,
		Loc:                  time.UTC,
		AllowNativePasswords: true,
		Params: map[string]string{
			"charset": "utf8mb4",
		},
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	return store.openDSN(store.dsn())
}

func (store *MySQLStore) openDSN(dsn string) error {
	m := store.Settings.Output.MySQL

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(store.Logger))
	if err != nil {
		if store.Logger != nil {
			store.Logger.Error("failed to open MySQL database",
				logger.String("host", m.Host),
				logger.String("port", m.Port),
				logger.String("database", m.Database),
				logger.Error(err))
		}
		return errors.New(fmt.Errorf("failed to open MySQL database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("host", m.Host).
			Context("database", m.Database).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.Logger, "MySQL", fmt.Sprintf("%s:%s/%s", m.Host, m.Port, m.Database))
}
