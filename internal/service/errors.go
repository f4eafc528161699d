package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"rental-registry/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

func mapDatabaseError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return apperror.Wrap(apperror.CodeConflict, "resource with the same unique attributes already exists", err)
		case "23503": // foreign_key_violation
			return apperror.Wrap(apperror.CodeValidation, "invalid foreign key reference", err)
		case "23P01": // exclusion_violation
			return apperror.Wrap(apperror.CodeOverlap, "assignment overlaps an existing assignment", err)
		case "23514": // check_violation
			return mapCheckViolation(pgErr.ConstraintName, err)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return apperror.Wrap(apperror.CodeConcurrencyConflict, "transaction conflict", err)
		}
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return apperror.Wrap(apperror.CodeConcurrencyConflict, "transaction conflict", err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique, sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return apperror.Wrap(apperror.CodeConflict, "resource with the same unique attributes already exists", err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return apperror.Wrap(apperror.CodeValidation, "invalid foreign key reference", err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintCheck:
			return mapCheckViolation(sqliteErr.Error(), err)
		}
	}

	return err
}

// mapCheckViolation picks the error code from the violated constraint's name. SQLite only
// reports the name inside its message, so constraint may be either.
func mapCheckViolation(constraint string, err error) error {
	switch {
	case strings.Contains(constraint, "end_after_start"):
		return apperror.Wrap(apperror.CodeInvalidRange, "end_date must be after start_date", err)
	case strings.Contains(constraint, "not_own_parent"):
		return apperror.Wrap(apperror.CodeCircularReference, "node cannot be its own parent", err)
	}
	return apperror.Wrap(apperror.CodeValidation, "check constraint violated", err)
}

func normalizeRequiredString(raw string, field string) (string, error) {
	value := strings.TrimSpace(raw)
	length := utf8.RuneCountInString(value)
	if length < 1 || length > 200 {
		return "", apperror.New(apperror.CodeValidation, fmt.Sprintf("%s length must be in range 1..200", field))
	}
	return value, nil
}

// normalizeDate drops the time of day; assignments are bounded by calendar dates.
func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func normalizeDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	normalized := normalizeDate(*t)
	return &normalized
}

func equalUintPtr(a *uint, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
