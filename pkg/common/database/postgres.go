package database

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/meddiag/platform/pkg/common/config"
	"github.com/meddiag/platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the relational store selected by cfg.DatabaseDriver.
// PostgreSQL is the production engine; SQLite is the local fallback.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Log.WithError(err).WithField("driver", cfg.DatabaseDriver).Error("Failed to connect to database")
		return nil, err
	}

	if isSQLite(cfg.DatabaseDriver) && cfg.SQLitePath == ":memory:" {
		// every new connection to :memory: is a fresh, empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Log.WithField("driver", cfg.DatabaseDriver).Info("Connected to database")
	return db, nil
}

// OpenInMemory returns a private SQLite database, used by tests and dry runs.
func OpenInMemory() (*gorm.DB, error) {
	return Open(&config.Config{DatabaseDriver: "sqlite", SQLitePath: ":memory:"})
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch {
	case strings.EqualFold(cfg.DatabaseDriver, "postgres"):
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)
		return postgres.Open(dsn), nil
	case isSQLite(cfg.DatabaseDriver):
		path := cfg.SQLitePath
		if path == "" {
			path = "meddiag.db"
		}
		// SQLite ignores foreign keys unless enabled per connection.
		return sqlite.Open(path + "?_pragma=foreign_keys(1)"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func isSQLite(driver string) bool {
	return strings.EqualFold(driver, "sqlite")
}
