// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rental-registry/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// New returns a migrated database backed by a file in t.TempDir().
func New(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "registry.db")
	database, err := db.Open(db.SQLiteURL(path), Logger())
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), database))

	t.Cleanup(func() {
		sqlDB, err := database.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}

// PostgresURLEnv names the database used by the PostgreSQL integration tests.
const PostgresURLEnv = "TEST_DATABASE_URL"

// Postgres returns the database at $TEST_DATABASE_URL, migrated with goose and emptied, or
// skips the test when the variable is unset. Tests using it must not run in parallel.
func Postgres(t testing.TB) *gorm.DB {
	t.Helper()

	url := strings.TrimSpace(os.Getenv(PostgresURLEnv))
	if url == "" {
		t.Skipf("%s is not set", PostgresURLEnv)
	}

	database, err := db.Open(url, Logger())
	require.NoError(t, err)
	require.True(t, db.IsPostgres(database), "%s must point at PostgreSQL", PostgresURLEnv)
	require.NoError(t, db.Migrate(context.Background(), database))
	require.NoError(t, database.Exec("TRUNCATE assignments, holders, resource_nodes, sequence_counters RESTART IDENTITY CASCADE").Error)

	t.Cleanup(func() {
		sqlDB, err := database.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}
