package service

import (
	"context"
	"errors"
	"fmt"

	"rental-registry/internal/apperror"
	"rental-registry/internal/db"
	"rental-registry/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxTreeDepth = 5

func (s *Registry) CreateNode(ctx context.Context, input CreateNodeInput) (NodeDTO, error) {
	name, err := normalizeRequiredString(input.Name, "name")
	if err != nil {
		return NodeDTO{}, err
	}

	var out NodeDTO
	err = s.inTx(ctx, "create_node", func(tx *gorm.DB) error {
		level := 0
		if input.ParentID != nil {
			if err := db.AdvisoryXactLock(tx, forestLockKey); err != nil {
				return err
			}
			// Trivially acyclic for a new node, but it also proves the parent exists
			// and that its own ancestry terminates.
			if err := s.hierarchy.ValidateParent(tx, 0, *input.ParentID); err != nil {
				return err
			}
			parentLevel, err := s.hierarchy.Level(tx, *input.ParentID)
			if err != nil {
				return err
			}
			level = parentLevel + 1
		}

		node := models.ResourceNode{
			Name:     name,
			ParentID: input.ParentID,
		}
		if err := tx.Create(&node).Error; err != nil {
			return err
		}
		out = nodeToDTO(node, level)
		return nil
	})
	if err != nil {
		return NodeDTO{}, err
	}

	s.logger.WithFields(logrus.Fields{"node_id": out.ID, "parent_id": out.ParentID}).Info("node created")
	return out, nil
}

func (s *Registry) UpdateNode(ctx context.Context, nodeID uint, input UpdateNodeInput) (NodeDTO, error) {
	return s.updateNode(ctx, "update_node", nodeID, input)
}

// MoveNode re-parents nodeID; a nil newParentID makes it a root.
func (s *Registry) MoveNode(ctx context.Context, nodeID uint, newParentID *uint) (NodeDTO, error) {
	return s.updateNode(ctx, "move_node", nodeID, UpdateNodeInput{
		ParentIDSet: true,
		ParentID:    newParentID,
	})
}

func (s *Registry) updateNode(ctx context.Context, op string, nodeID uint, input UpdateNodeInput) (NodeDTO, error) {
	var newName *string
	if input.Name != nil {
		normalized, err := normalizeRequiredString(*input.Name, "name")
		if err != nil {
			return NodeDTO{}, err
		}
		newName = &normalized
	}

	var out NodeDTO
	err := s.inTx(ctx, op, func(tx *gorm.DB) error {
		if input.ParentIDSet {
			if err := db.AdvisoryXactLock(tx, forestLockKey); err != nil {
				return err
			}
		}

		node, err := s.lockNode(tx, nodeID)
		if err != nil {
			return err
		}

		if input.ParentIDSet && !equalUintPtr(node.ParentID, input.ParentID) {
			if err := s.hierarchy.SetParent(tx, nodeID, input.ParentID); err != nil {
				return err
			}
		}
		if newName != nil && *newName != node.Name {
			if err := tx.Model(&node).Update("name", *newName).Error; err != nil {
				return err
			}
		}

		if err := tx.Take(&node, nodeID).Error; err != nil {
			return fmt.Errorf("reload node: %w", err)
		}
		level, err := s.hierarchy.Level(tx, nodeID)
		if err != nil {
			return err
		}
		out = nodeToDTO(node, level)
		return nil
	})
	if err != nil {
		return NodeDTO{}, err
	}

	if input.ParentIDSet {
		s.logger.WithFields(logrus.Fields{"node_id": nodeID, "parent_id": out.ParentID}).Info("node moved")
	}
	return out, nil
}

// DeleteNode removes a node and turns its direct children into roots. A node that still
// carries assignments cannot be deleted.
func (s *Registry) DeleteNode(ctx context.Context, nodeID uint) error {
	var detached int64
	err := s.inTx(ctx, "delete_node", func(tx *gorm.DB) error {
		if err := db.AdvisoryXactLock(tx, forestLockKey); err != nil {
			return err
		}
		if _, err := s.lockNode(tx, nodeID); err != nil {
			return err
		}

		var assignments int64
		if err := tx.Model(&models.Assignment{}).Where("node_id = ?", nodeID).Count(&assignments).Error; err != nil {
			return fmt.Errorf("count node assignments: %w", err)
		}
		if assignments > 0 {
			return apperror.New(apperror.CodeConflict, "node still has assignments").
				WithDetail("node_id", nodeID).
				WithDetail("assignments", assignments)
		}

		result := tx.Model(&models.ResourceNode{}).Where("parent_id = ?", nodeID).Update("parent_id", nil)
		if result.Error != nil {
			return fmt.Errorf("detach children: %w", result.Error)
		}
		detached = result.RowsAffected

		return tx.Delete(&models.ResourceNode{}, nodeID).Error
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"node_id": nodeID, "detached_children": detached}).Info("node deleted")
	return nil
}

func (s *Registry) GetNode(ctx context.Context, nodeID uint) (NodeDTO, error) {
	var out NodeDTO
	err := s.read(ctx, func(tx *gorm.DB) error {
		node, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		level, err := s.hierarchy.Level(tx, nodeID)
		if err != nil {
			return err
		}
		out = nodeToDTO(node, level)
		return nil
	})
	return out, err
}

func (s *Registry) Level(ctx context.Context, nodeID uint) (int, error) {
	var level int
	err := s.read(ctx, func(tx *gorm.DB) error {
		var err error
		level, err = s.hierarchy.Level(tx, nodeID)
		return err
	})
	return level, err
}

func (s *Registry) Root(ctx context.Context, nodeID uint) (uint, error) {
	var root uint
	err := s.read(ctx, func(tx *gorm.DB) error {
		var err error
		root, err = s.hierarchy.Root(tx, nodeID)
		return err
	})
	return root, err
}

// Ancestors returns nodeID followed by each ancestor up to its root.
func (s *Registry) Ancestors(ctx context.Context, nodeID uint) ([]uint, error) {
	var chain []uint
	err := s.read(ctx, func(tx *gorm.DB) error {
		var err error
		chain, err = s.hierarchy.Ancestors(tx, nodeID)
		return err
	})
	return chain, err
}

func (s *Registry) Descendants(ctx context.Context, nodeID uint, includeSelf bool) ([]uint, error) {
	var out []uint
	err := s.read(ctx, func(tx *gorm.DB) error {
		var err error
		out, err = s.hierarchy.Descendants(tx, nodeID, includeSelf)
		return err
	})
	return out, err
}

// GetNodeTree returns the subtree below nodeID down to options.Depth levels, loading each
// level with one query.
func (s *Registry) GetNodeTree(ctx context.Context, nodeID uint, options GetNodeOptions) (NodeTree, error) {
	if options.Depth < 0 || options.Depth > maxTreeDepth {
		return NodeTree{}, apperror.New(apperror.CodeValidation, fmt.Sprintf("depth must be between 0 and %d", maxTreeDepth))
	}

	var tree NodeTree
	err := s.read(ctx, func(tx *gorm.DB) error {
		root, err := loadNode(tx, nodeID)
		if err != nil {
			return err
		}
		rootLevel, err := s.hierarchy.Level(tx, nodeID)
		if err != nil {
			return err
		}

		levels := map[uint]int{root.ID: rootLevel}
		childrenOf := map[uint][]models.ResourceNode{}
		all := []uint{root.ID}
		frontier := []uint{root.ID}
		for depth := 0; depth < options.Depth && len(frontier) > 0; depth++ {
			children, err := s.hierarchy.Children(tx, frontier)
			if err != nil {
				return err
			}
			next := make([]uint, 0, len(children))
			for _, child := range children {
				if _, seen := levels[child.ID]; seen {
					continue
				}
				levels[child.ID] = levels[*child.ParentID] + 1
				childrenOf[*child.ParentID] = append(childrenOf[*child.ParentID], child)
				next = append(next, child.ID)
			}
			all = append(all, next...)
			frontier = next
		}

		var assignmentsOf map[uint][]models.Assignment
		if options.IncludeAssignments {
			assignmentsOf, err = assignmentsForNodes(tx, all)
			if err != nil {
				return err
			}
		}

		tree = s.assembleTree(root, levels, childrenOf, assignmentsOf, options.IncludeAssignments)
		return nil
	})
	return tree, err
}

func (s *Registry) assembleTree(node models.ResourceNode, levels map[uint]int, childrenOf map[uint][]models.ResourceNode, assignmentsOf map[uint][]models.Assignment, includeAssignments bool) NodeTree {
	result := NodeTree{
		Node:     nodeToDTO(node, levels[node.ID]),
		Children: []NodeTree{},
	}
	if includeAssignments {
		dtos := make([]AssignmentDTO, 0, len(assignmentsOf[node.ID]))
		for _, a := range assignmentsOf[node.ID] {
			dtos = append(dtos, s.assignmentToDTO(a))
		}
		result.Assignments = &dtos
	}
	for _, child := range childrenOf[node.ID] {
		result.Children = append(result.Children, s.assembleTree(child, levels, childrenOf, assignmentsOf, includeAssignments))
	}
	return result
}

func loadNode(tx *gorm.DB, nodeID uint) (models.ResourceNode, error) {
	var node models.ResourceNode
	if err := tx.Where("id = ?", nodeID).Take(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ResourceNode{}, apperror.New(apperror.CodeNotFound, "node not found")
		}
		return models.ResourceNode{}, fmt.Errorf("load node: %w", err)
	}
	return node, nil
}

// lockNode loads nodeID and holds its row lock until the transaction ends. The lock
// guards the node's assignment set as well as the node itself.
func (s *Registry) lockNode(tx *gorm.DB, nodeID uint) (models.ResourceNode, error) {
	var node models.ResourceNode
	if err := db.ForUpdate(tx).Where("id = ?", nodeID).Take(&node).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ResourceNode{}, apperror.New(apperror.CodeNotFound, "node not found").WithDetail("node_id", nodeID)
		}
		return models.ResourceNode{}, fmt.Errorf("lock node: %w", err)
	}
	return node, nil
}

func nodeToDTO(node models.ResourceNode, level int) NodeDTO {
	return NodeDTO{
		ID:        node.ID,
		Name:      node.Name,
		ParentID:  node.ParentID,
		Level:     level,
		CreatedAt: node.CreatedAt,
	}
}
