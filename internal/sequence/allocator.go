// Package sequence issues strictly increasing integers per named counter.
//
// Allocation runs inside the caller's transaction and holds the counter row lock
// until that transaction ends, so a rolled-back caller never consumes a value and
// two committed callers never share one.
package sequence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rental-registry/internal/db"
	"rental-registry/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Next increments counter and returns the new value. tx must be an open transaction.
func Next(tx *gorm.DB, counter string) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SequenceCounter{Name: counter}).Error; err != nil {
		return 0, fmt.Errorf("ensure counter %q: %w", counter, err)
	}

	var row models.SequenceCounter
	if err := db.ForUpdate(tx).Where("name = ?", counter).Take(&row).Error; err != nil {
		return 0, fmt.Errorf("lock counter %q: %w", counter, err)
	}

	next := row.LastValue + 1
	if err := tx.Model(&models.SequenceCounter{}).
		Where("name = ?", counter).
		Update("last_value", next).Error; err != nil {
		return 0, fmt.Errorf("advance counter %q: %w", counter, err)
	}
	return next, nil
}

// Allocator binds a counter to its display format, e.g. CTR-00042.
type Allocator struct {
	counter string
	prefix  string
	width   int
}

func NewAllocator(counter, prefix string, width int) *Allocator {
	return &Allocator{
		counter: counter,
		prefix:  prefix,
		width:   width,
	}
}

func (a *Allocator) Counter() string {
	return a.counter
}

func (a *Allocator) Next(tx *gorm.DB) (int64, error) {
	return Next(tx, a.counter)
}

func (a *Allocator) Format(value int64) string {
	return fmt.Sprintf("%s-%0*d", a.prefix, a.width, value)
}

var ErrMalformedNumber = errors.New("malformed sequence number")

// Parse reverses Format. Values wider than the configured width are accepted.
func (a *Allocator) Parse(raw string) (int64, error) {
	digits, ok := strings.CutPrefix(strings.TrimSpace(raw), a.prefix+"-")
	if !ok || len(digits) < a.width {
		return 0, ErrMalformedNumber
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || value <= 0 {
		return 0, ErrMalformedNumber
	}
	return value, nil
}
