package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rental-registry/internal/apperror"
	"rental-registry/internal/assignment"
	"rental-registry/internal/db"
	"rental-registry/internal/metrics"
	"rental-registry/internal/models"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// CreateAssignment validates the candidate against the node's current assignments and
// issues its sequence number in the same transaction, so a rejected candidate never
// consumes a number.
func (s *Registry) CreateAssignment(ctx context.Context, input CreateAssignmentInput) (AssignmentDTO, error) {
	candidate := assignment.Candidate{
		NodeID:    input.NodeID,
		StartDate: normalizeDate(input.StartDate),
		EndDate:   normalizeDatePtr(input.EndDate),
	}

	var record models.Assignment
	err := s.inTx(ctx, "create_assignment", func(tx *gorm.DB) error {
		if _, err := s.lockNode(tx, input.NodeID); err != nil {
			return err
		}
		if err := s.ensureEligibleHolder(tx, input.HolderID); err != nil {
			return err
		}

		existing, err := assignmentsForNode(tx, input.NodeID)
		if err != nil {
			return err
		}
		if err := s.validator.Validate(candidate, existing, 0); err != nil {
			return err
		}

		number, err := s.sequence.Next(tx)
		if err != nil {
			return err
		}
		record = models.Assignment{
			Number:    number,
			NodeID:    input.NodeID,
			HolderID:  input.HolderID,
			StartDate: candidate.StartDate,
			EndDate:   candidate.EndDate,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return AssignmentDTO{}, err
	}

	metrics.RecordSequenceAllocation(s.sequence.Counter())
	out := s.assignmentToDTO(record)
	s.logger.WithFields(logrus.Fields{
		"assignment_id": out.ID,
		"number":        out.Number,
		"node_id":       out.NodeID,
	}).Info("assignment created")
	return out, nil
}

// UpdateAssignment re-validates the changed interval against every other assignment of
// the (possibly new) node. Shortening an open-ended assignment frees the dates after its
// new end for later creates.
func (s *Registry) UpdateAssignment(ctx context.Context, assignmentID uint, input UpdateAssignmentInput) (AssignmentDTO, error) {
	var record models.Assignment
	err := s.inTx(ctx, "update_assignment", func(tx *gorm.DB) error {
		current, err := loadAssignment(tx, assignmentID)
		if err != nil {
			return err
		}

		targetNodeID := current.NodeID
		if input.NodeID != nil {
			targetNodeID = *input.NodeID
		}
		if err := s.lockNodes(tx, current.NodeID, targetNodeID); err != nil {
			return err
		}

		locked, err := lockAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if locked.NodeID != current.NodeID {
			return apperror.New(apperror.CodeConcurrencyConflict, "assignment was moved by a concurrent update")
		}

		holderID := locked.HolderID
		if input.HolderID != nil && *input.HolderID != locked.HolderID {
			if err := s.ensureEligibleHolder(tx, *input.HolderID); err != nil {
				return err
			}
			holderID = *input.HolderID
		}

		candidate := assignment.Candidate{
			NodeID:    targetNodeID,
			StartDate: locked.StartDate,
			EndDate:   locked.EndDate,
		}
		if input.StartDate != nil {
			candidate.StartDate = normalizeDate(*input.StartDate)
		}
		if input.EndDateSet {
			candidate.EndDate = normalizeDatePtr(input.EndDate)
		}

		existing, err := assignmentsForNode(tx, targetNodeID)
		if err != nil {
			return err
		}
		if err := s.validator.Validate(candidate, existing, assignmentID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"node_id":    candidate.NodeID,
			"holder_id":  holderID,
			"start_date": candidate.StartDate,
			"end_date":   candidate.EndDate,
		}
		if err := tx.Model(&locked).Updates(updates).Error; err != nil {
			return err
		}

		record, err = loadAssignment(tx, assignmentID)
		return err
	})
	if err != nil {
		return AssignmentDTO{}, err
	}

	out := s.assignmentToDTO(record)
	s.logger.WithFields(logrus.Fields{
		"assignment_id": out.ID,
		"number":        out.Number,
		"node_id":       out.NodeID,
	}).Info("assignment updated")
	return out, nil
}

// DeleteAssignment removes the record. Its number stays spent.
func (s *Registry) DeleteAssignment(ctx context.Context, assignmentID uint) error {
	err := s.inTx(ctx, "delete_assignment", func(tx *gorm.DB) error {
		current, err := loadAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		if _, err := s.lockNode(tx, current.NodeID); err != nil {
			return err
		}
		result := tx.Delete(&models.Assignment{}, assignmentID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperror.New(apperror.CodeNotFound, "assignment not found")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithField("assignment_id", assignmentID).Info("assignment deleted")
	return nil
}

func (s *Registry) GetAssignment(ctx context.Context, assignmentID uint) (AssignmentDTO, error) {
	var out AssignmentDTO
	err := s.read(ctx, func(tx *gorm.DB) error {
		record, err := loadAssignment(tx, assignmentID)
		if err != nil {
			return err
		}
		out = s.assignmentToDTO(record)
		return nil
	})
	return out, err
}

// GetAssignmentByNumber resolves a display number such as CTR-00042.
func (s *Registry) GetAssignmentByNumber(ctx context.Context, number string) (AssignmentDTO, error) {
	value, err := s.sequence.Parse(number)
	if err != nil {
		return AssignmentDTO{}, apperror.Wrap(apperror.CodeValidation, fmt.Sprintf("malformed assignment number %q", number), err)
	}

	var out AssignmentDTO
	err = s.read(ctx, func(tx *gorm.DB) error {
		var record models.Assignment
		if err := tx.Where("number = ?", value).Take(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.New(apperror.CodeNotFound, "assignment not found").WithDetail("number", number)
			}
			return fmt.Errorf("load assignment by number: %w", err)
		}
		out = s.assignmentToDTO(record)
		return nil
	})
	return out, err
}

func (s *Registry) ListAssignments(ctx context.Context, nodeID uint) ([]AssignmentDTO, error) {
	var out []AssignmentDTO
	err := s.read(ctx, func(tx *gorm.DB) error {
		if _, err := loadNode(tx, nodeID); err != nil {
			return err
		}
		records, err := assignmentsForNode(tx, nodeID)
		if err != nil {
			return err
		}
		out = s.assignmentsToDTO(records)
		return nil
	})
	return out, err
}

// ActiveAssignments lists the assignments of nodeID whose interval contains the given
// day, today when on is nil.
func (s *Registry) ActiveAssignments(ctx context.Context, nodeID uint, on *time.Time) ([]AssignmentDTO, error) {
	day := normalizeDate(s.options.Now())
	if on != nil {
		day = normalizeDate(*on)
	}

	var out []AssignmentDTO
	err := s.read(ctx, func(tx *gorm.DB) error {
		if _, err := loadNode(tx, nodeID); err != nil {
			return err
		}
		records, err := assignmentsForNode(tx, nodeID)
		if err != nil {
			return err
		}
		out = s.assignmentsToDTO(assignment.ActiveOn(records, day))
		return nil
	})
	return out, err
}

func (s *Registry) ensureEligibleHolder(tx *gorm.DB, holderID uint) error {
	var holder models.Holder
	if err := tx.Where("id = ?", holderID).Take(&holder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.CodeNotFound, "holder not found").WithDetail("holder_id", holderID)
		}
		return fmt.Errorf("load holder: %w", err)
	}
	if holder.Kind != s.options.EligibleHolderKind {
		return apperror.New(apperror.CodeIneligibleHolder, fmt.Sprintf("holder of kind %q cannot hold assignments", holder.Kind)).
			WithDetail("holder_id", holderID).
			WithDetail("kind", string(holder.Kind))
	}
	return nil
}

// lockNodes locks each distinct node in ascending id order so that two updates moving
// assignments in opposite directions cannot deadlock.
func (s *Registry) lockNodes(tx *gorm.DB, nodeIDs ...uint) error {
	ids := lo.Uniq(nodeIDs)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if _, err := s.lockNode(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func lockAssignment(tx *gorm.DB, assignmentID uint) (models.Assignment, error) {
	return loadAssignment(db.ForUpdate(tx), assignmentID)
}

func loadAssignment(tx *gorm.DB, assignmentID uint) (models.Assignment, error) {
	var record models.Assignment
	if err := tx.Where("id = ?", assignmentID).Take(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, apperror.New(apperror.CodeNotFound, "assignment not found")
		}
		return models.Assignment{}, fmt.Errorf("load assignment: %w", err)
	}
	return record, nil
}

func assignmentsForNode(tx *gorm.DB, nodeID uint) ([]models.Assignment, error) {
	var records []models.Assignment
	if err := tx.Where("node_id = ?", nodeID).
		Order("start_date ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load node assignments: %w", err)
	}
	return records, nil
}

func assignmentsForNodes(tx *gorm.DB, nodeIDs []uint) (map[uint][]models.Assignment, error) {
	var records []models.Assignment
	for _, chunk := range lo.Chunk(nodeIDs, 500) {
		var batch []models.Assignment
		if err := tx.Where("node_id IN ?", chunk).
			Order("start_date ASC").
			Order("id ASC").
			Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("load assignments: %w", err)
		}
		records = append(records, batch...)
	}
	return lo.GroupBy(records, func(a models.Assignment) uint { return a.NodeID }), nil
}

func (s *Registry) assignmentsToDTO(records []models.Assignment) []AssignmentDTO {
	out := make([]AssignmentDTO, 0, len(records))
	for _, record := range records {
		out = append(out, s.assignmentToDTO(record))
	}
	return out
}

func (s *Registry) assignmentToDTO(a models.Assignment) AssignmentDTO {
	var endDate *string
	if a.EndDate != nil {
		formatted := a.EndDate.Format(dateLayout)
		endDate = &formatted
	}

	return AssignmentDTO{
		ID:        a.ID,
		Number:    s.sequence.Format(a.Number),
		Sequence:  a.Number,
		NodeID:    a.NodeID,
		HolderID:  a.HolderID,
		StartDate: a.StartDate.Format(dateLayout),
		EndDate:   endDate,
		CreatedAt: a.CreatedAt,
	}
}
