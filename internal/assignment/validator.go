// Package assignment enforces the per-node rule that no two rental contracts
// are active at the same time.
package assignment

import (
	"fmt"
	"time"

	"rental-registry/internal/apperror"
	"rental-registry/internal/interval"
	"rental-registry/internal/models"
)

const dateLayout = "2006-01-02"

// Candidate is the interval a create or update wants to commit.
type Candidate struct {
	NodeID    uint
	StartDate time.Time
	EndDate   *time.Time
}

func (c Candidate) Interval() interval.Interval {
	return interval.New(c.StartDate, c.EndDate)
}

func IntervalOf(a models.Assignment) interval.Interval {
	return interval.New(a.StartDate, a.EndDate)
}

type Validator struct {
	formatNumber func(int64) string
}

// NewValidator builds a validator; formatNumber renders conflicting sequence numbers in
// error messages and may be nil.
func NewValidator(formatNumber func(int64) string) *Validator {
	if formatNumber == nil {
		formatNumber = func(n int64) string { return fmt.Sprintf("#%d", n) }
	}
	return &Validator{formatNumber: formatNumber}
}

// Validate checks candidate against existing, which must be every assignment of the
// candidate's node read inside the transaction that will write the candidate.
// excludingID skips the record being updated; 0 means none.
func (v *Validator) Validate(candidate Candidate, existing []models.Assignment, excludingID uint) error {
	if candidate.StartDate.IsZero() {
		return apperror.New(apperror.CodeValidation, "start_date is required")
	}
	if !candidate.Interval().Valid() {
		return apperror.New(apperror.CodeInvalidRange, "end_date must be after start_date").
			WithDetail("start_date", candidate.StartDate.Format(dateLayout)).
			WithDetail("end_date", candidate.EndDate.Format(dateLayout))
	}

	for _, other := range existing {
		if excludingID != 0 && other.ID == excludingID {
			continue
		}
		if other.NodeID != candidate.NodeID {
			continue
		}
		if interval.Overlaps(candidate.Interval(), IntervalOf(other)) {
			number := v.formatNumber(other.Number)
			return apperror.New(apperror.CodeOverlap, fmt.Sprintf("assignment overlaps %s (%s)", number, describe(other))).
				WithDetail("conflicting_assignment_id", other.ID).
				WithDetail("conflicting_number", number)
		}
	}
	return nil
}

// ActiveOn filters assignments whose interval contains day.
func ActiveOn(assignments []models.Assignment, day time.Time) []models.Assignment {
	out := make([]models.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if IntervalOf(a).Contains(day) {
			out = append(out, a)
		}
	}
	return out
}

func describe(a models.Assignment) string {
	span := IntervalOf(a)
	if span.IsOpen() {
		return span.Start.Format(dateLayout) + " .. open"
	}
	return span.Start.Format(dateLayout) + " .. " + span.End.Format(dateLayout)
}
