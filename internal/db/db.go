package db

import (
	"fmt"
	"strings"
	"time"

	"rental-registry/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

func Connect(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	return Open(cfg.DatabaseURL, log)
}

// Open picks the dialect from the URL scheme: postgres:// and postgresql:// use pgx,
// sqlite:// and file: use mattn/go-sqlite3.
func Open(databaseURL string, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dialector, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if IsSQLite(database) {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// Single writer: every transaction runs alone on the one connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	return database, nil
}

// SQLiteURL builds a DATABASE_URL for a SQLite file.
func SQLiteURL(path string) string {
	return "sqlite://" + path
}

func dialectorFor(databaseURL string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return sqlite.Open(sqliteDSN("file:" + strings.TrimPrefix(databaseURL, "sqlite://"))), nil
	case strings.HasPrefix(databaseURL, "file:"):
		return sqlite.Open(sqliteDSN(databaseURL)), nil
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL scheme: %q", redact(databaseURL))
	}
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func redact(databaseURL string) string {
	if i := strings.Index(databaseURL, "://"); i >= 0 {
		return databaseURL[:i+3] + "..."
	}
	return "..."
}
