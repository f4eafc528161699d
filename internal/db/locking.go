package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func IsPostgres(tx *gorm.DB) bool {
	return tx.Dialector.Name() == DialectPostgres
}

func IsSQLite(tx *gorm.DB) bool {
	return tx.Dialector.Name() == DialectSQLite
}

// ForUpdate adds a row lock to the next SELECT. SQLite has no row locks; there the
// single-connection pool already serializes transactions.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if !IsPostgres(tx) {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// AdvisoryXactLock takes a transaction-scoped exclusive lock on an arbitrary key.
// The lock is released on commit or rollback.
func AdvisoryXactLock(tx *gorm.DB, key string) error {
	if !IsPostgres(tx) {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// SetLockTimeout bounds how long statements in tx wait on locks.
func SetLockTimeout(tx *gorm.DB, timeout time.Duration) error {
	if !IsPostgres(tx) || timeout <= 0 {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())).Error
}
