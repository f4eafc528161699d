// Package hierarchy maintains the resource forest: parent links, cycle checks,
// levels, roots and descendant sets.
//
// Every walk keeps a visited set, so a cycle that somehow reached the store makes
// reads fail instead of looping.
package hierarchy

import (
	"errors"
	"fmt"

	"rental-registry/internal/apperror"
	"rental-registry/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// frontierChunk caps the size of a single IN (...) list during descendant expansion.
const frontierChunk = 500

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ValidateParent checks that parentID may become the parent of nodeID. Pass nodeID 0 for
// a node that has not been inserted yet.
func (m *Manager) ValidateParent(tx *gorm.DB, nodeID uint, parentID uint) error {
	if nodeID != 0 && parentID == nodeID {
		return apperror.New(apperror.CodeCircularReference, "node cannot be its own parent").
			WithDetail("node_id", nodeID)
	}

	chain, err := m.ancestors(tx, parentID)
	if err != nil {
		if apperror.Is(err, apperror.CodeNotFound) {
			return apperror.New(apperror.CodeNotFound, "parent node not found").WithDetail("parent_id", parentID)
		}
		return err
	}
	if nodeID != 0 && lo.Contains(chain, nodeID) {
		return apperror.New(apperror.CodeCircularReference, "node cannot be moved under its own descendant").
			WithDetail("node_id", nodeID).
			WithDetail("parent_id", parentID)
	}
	return nil
}

// SetParent re-parents nodeID after rejecting any assignment that would close a cycle.
// A nil newParentID turns the node into a root.
func (m *Manager) SetParent(tx *gorm.DB, nodeID uint, newParentID *uint) error {
	if newParentID != nil {
		if err := m.ValidateParent(tx, nodeID, *newParentID); err != nil {
			return err
		}
	}

	result := tx.Model(&models.ResourceNode{}).Where("id = ?", nodeID).Update("parent_id", newParentID)
	if result.Error != nil {
		return fmt.Errorf("update parent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.New(apperror.CodeNotFound, "node not found")
	}
	return nil
}

// Level is 0 for a root, otherwise one more than the parent's level.
func (m *Manager) Level(tx *gorm.DB, nodeID uint) (int, error) {
	chain, err := m.ancestors(tx, nodeID)
	if err != nil {
		return 0, err
	}
	return len(chain) - 1, nil
}

func (m *Manager) Root(tx *gorm.DB, nodeID uint) (uint, error) {
	chain, err := m.ancestors(tx, nodeID)
	if err != nil {
		return 0, err
	}
	return chain[len(chain)-1], nil
}

// Ancestors returns nodeID followed by its parent, grandparent and so on up to the root.
func (m *Manager) Ancestors(tx *gorm.DB, nodeID uint) ([]uint, error) {
	return m.ancestors(tx, nodeID)
}

func (m *Manager) ancestors(tx *gorm.DB, nodeID uint) ([]uint, error) {
	chain := []uint{}
	visited := map[uint]struct{}{}

	currentID := &nodeID
	for currentID != nil {
		if _, seen := visited[*currentID]; seen {
			return nil, apperror.New(apperror.CodeCircularReference, "cycle detected in ancestor chain").
				WithDetail("node_id", nodeID).
				WithDetail("repeated_id", *currentID)
		}

		var node models.ResourceNode
		if err := tx.Select("id", "parent_id").Where("id = ?", *currentID).Take(&node).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if len(chain) == 0 {
					return nil, apperror.New(apperror.CodeNotFound, "node not found")
				}
				// Dangling parent key; the chain ends at the last node that exists.
				return chain, nil
			}
			return nil, fmt.Errorf("load parent chain: %w", err)
		}

		visited[node.ID] = struct{}{}
		chain = append(chain, node.ID)
		currentID = node.ParentID
	}

	return chain, nil
}

// Descendants returns every node reachable through child links, in breadth-first order.
// Each frontier is expanded with one query per chunk, never one query per node.
func (m *Manager) Descendants(tx *gorm.DB, nodeID uint, includeSelf bool) ([]uint, error) {
	if err := m.ensureExists(tx, nodeID); err != nil {
		return nil, err
	}

	visited := map[uint]struct{}{nodeID: {}}
	result := []uint{}
	if includeSelf {
		result = append(result, nodeID)
	}

	frontier := []uint{nodeID}
	for len(frontier) > 0 {
		children, err := m.childIDs(tx, frontier)
		if err != nil {
			return nil, err
		}

		next := make([]uint, 0, len(children))
		for _, id := range children {
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			next = append(next, id)
		}
		result = append(result, next...)
		frontier = next
	}

	return result, nil
}

// Children loads the direct children of every node in parentIDs, ordered by name.
func (m *Manager) Children(tx *gorm.DB, parentIDs []uint) ([]models.ResourceNode, error) {
	var out []models.ResourceNode
	for _, chunk := range lo.Chunk(lo.Uniq(parentIDs), frontierChunk) {
		var batch []models.ResourceNode
		if err := tx.Where("parent_id IN ?", chunk).Order("name ASC").Order("id ASC").Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("load child nodes: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (m *Manager) childIDs(tx *gorm.DB, parentIDs []uint) ([]uint, error) {
	var out []uint
	for _, chunk := range lo.Chunk(parentIDs, frontierChunk) {
		var batch []uint
		if err := tx.Model(&models.ResourceNode{}).
			Where("parent_id IN ?", chunk).
			Order("id ASC").
			Pluck("id", &batch).Error; err != nil {
			return nil, fmt.Errorf("load child ids: %w", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (m *Manager) ensureExists(tx *gorm.DB, nodeID uint) error {
	var count int64
	if err := tx.Model(&models.ResourceNode{}).Where("id = ?", nodeID).Count(&count).Error; err != nil {
		return fmt.Errorf("check node existence: %w", err)
	}
	if count == 0 {
		return apperror.New(apperror.CodeNotFound, "node not found")
	}
	return nil
}
