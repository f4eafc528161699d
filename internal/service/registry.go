package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rental-registry/internal/apperror"
	"rental-registry/internal/assignment"
	"rental-registry/internal/config"
	"rental-registry/internal/db"
	"rental-registry/internal/hierarchy"
	"rental-registry/internal/metrics"
	"rental-registry/internal/models"
	"rental-registry/internal/sequence"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// forestLockKey serializes every topology change so that two concurrent moves can never
// jointly close a cycle that each one alone would not see.
const forestLockKey = "resource_forest"

type Options struct {
	EligibleHolderKind models.HolderKind
	NumberPrefix       string
	NumberWidth        int
	Counter            string
	MaxRetries         uint64
	RetryBaseDelay     time.Duration
	LockTimeout        time.Duration
	Now                func() time.Time
}

func DefaultOptions() Options {
	return Options{
		EligibleHolderKind: models.HolderKindTenant,
		NumberPrefix:       "CTR",
		NumberWidth:        5,
		Counter:            "assignment",
		MaxRetries:         3,
		RetryBaseDelay:     25 * time.Millisecond,
		LockTimeout:        5 * time.Second,
		Now:                time.Now,
	}
}

func OptionsFromConfig(cfg config.Config) Options {
	opts := DefaultOptions()
	opts.EligibleHolderKind = models.HolderKind(cfg.EligibleHolderKind)
	opts.NumberPrefix = cfg.AssignmentNumberPrefix
	opts.NumberWidth = cfg.AssignmentNumberWidth
	opts.Counter = cfg.AssignmentCounter
	opts.MaxRetries = cfg.TxMaxRetries
	opts.RetryBaseDelay = cfg.TxRetryBaseDelay
	opts.LockTimeout = cfg.LockTimeout
	return opts
}

// Registry is the only writer of nodes, holders and assignments. Each mutating method
// runs lock acquisition, validation and the write inside one transaction.
type Registry struct {
	db        *gorm.DB
	logger    *logrus.Logger
	options   Options
	hierarchy *hierarchy.Manager
	sequence  *sequence.Allocator
	validator *assignment.Validator
}

func NewRegistry(database *gorm.DB, logger *logrus.Logger, options Options) *Registry {
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.RetryBaseDelay <= 0 {
		options.RetryBaseDelay = DefaultOptions().RetryBaseDelay
	}

	allocator := sequence.NewAllocator(options.Counter, options.NumberPrefix, options.NumberWidth)
	return &Registry{
		db:        database,
		logger:    logger,
		options:   options,
		hierarchy: hierarchy.NewManager(),
		sequence:  allocator,
		validator: assignment.NewValidator(allocator.Format),
	}
}

// inTx runs fn in a fresh transaction, retrying only on concurrency conflicts.
// fn may run several times and must not leak state between attempts.
func (s *Registry) inTx(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(s.options.MaxRetries,
		retry.WithJitterPercent(20, retry.NewExponential(s.options.RetryBaseDelay)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := db.SetLockTimeout(tx, s.options.LockTimeout); err != nil {
				return err
			}
			return fn(tx)
		})
		if err == nil {
			return nil
		}

		err = mapDatabaseError(err)
		if apperror.Retryable(err) {
			metrics.RecordRetry(op)
			s.logger.WithError(err).WithFields(logrus.Fields{
				"op":      op,
				"attempt": attempt,
			}).Warn("transaction conflict")
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		s.logRejection(op, err)
	}
	return err
}

// read runs fn against one consistent snapshot. Reads are never retried.
func (s *Registry) read(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if db.IsPostgres(s.db) {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	if err := s.db.WithContext(ctx).Transaction(fn, opts...); err != nil {
		return mapDatabaseError(err)
	}
	return nil
}

func (s *Registry) logRejection(op string, err error) {
	code := apperror.GetCode(err)
	metrics.RecordRejection(op, string(code))

	entry := s.logger.WithFields(logrus.Fields{
		"op":   op,
		"code": code,
	})
	if code == apperror.CodeInternal {
		entry.WithError(err).Error("write failed")
		return
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			entry = entry.WithField(k, v)
		}
	}
	entry.Info(err.Error())
}
