package service

import (
	"context"
	"time"
)

type CreateNodeInput struct {
	Name     string
	ParentID *uint
}

type UpdateNodeInput struct {
	Name        *string
	ParentIDSet bool
	ParentID    *uint
}

type CreateHolderInput struct {
	Name string
	Kind string
}

type CreateAssignmentInput struct {
	NodeID    uint
	HolderID  uint
	StartDate time.Time
	EndDate   *time.Time
}

// UpdateAssignmentInput leaves a field unchanged when it is nil. EndDateSet distinguishes
// "make open-ended" (set, nil) from "keep current end" (not set).
type UpdateAssignmentInput struct {
	NodeID     *uint
	HolderID   *uint
	StartDate  *time.Time
	EndDateSet bool
	EndDate    *time.Time
}

type GetNodeOptions struct {
	Depth              int
	IncludeAssignments bool
}

type NodeDTO struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	ParentID  *uint     `json:"parent_id"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type HolderDTO struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type AssignmentDTO struct {
	ID        uint      `json:"id"`
	Number    string    `json:"number"`
	Sequence  int64     `json:"sequence"`
	NodeID    uint      `json:"node_id"`
	HolderID  uint      `json:"holder_id"`
	StartDate string    `json:"start_date"`
	EndDate   *string   `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

type NodeTree struct {
	Node        NodeDTO          `json:"node"`
	Assignments *[]AssignmentDTO `json:"assignments,omitempty"`
	Children    []NodeTree       `json:"children"`
}

type Manager interface {
	CreateNode(ctx context.Context, input CreateNodeInput) (NodeDTO, error)
	UpdateNode(ctx context.Context, nodeID uint, input UpdateNodeInput) (NodeDTO, error)
	MoveNode(ctx context.Context, nodeID uint, newParentID *uint) (NodeDTO, error)
	DeleteNode(ctx context.Context, nodeID uint) error
	GetNode(ctx context.Context, nodeID uint) (NodeDTO, error)
	GetNodeTree(ctx context.Context, nodeID uint, options GetNodeOptions) (NodeTree, error)
	Level(ctx context.Context, nodeID uint) (int, error)
	Root(ctx context.Context, nodeID uint) (uint, error)
	Ancestors(ctx context.Context, nodeID uint) ([]uint, error)
	Descendants(ctx context.Context, nodeID uint, includeSelf bool) ([]uint, error)

	CreateHolder(ctx context.Context, input CreateHolderInput) (HolderDTO, error)

	CreateAssignment(ctx context.Context, input CreateAssignmentInput) (AssignmentDTO, error)
	UpdateAssignment(ctx context.Context, assignmentID uint, input UpdateAssignmentInput) (AssignmentDTO, error)
	DeleteAssignment(ctx context.Context, assignmentID uint) error
	GetAssignment(ctx context.Context, assignmentID uint) (AssignmentDTO, error)
	GetAssignmentByNumber(ctx context.Context, number string) (AssignmentDTO, error)
	ListAssignments(ctx context.Context, nodeID uint) ([]AssignmentDTO, error)
	ActiveAssignments(ctx context.Context, nodeID uint, on *time.Time) ([]AssignmentDTO, error)
}
