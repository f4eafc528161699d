package models

import "time"

// ResourceNode is one unit in the rental forest (building, apartment, room, ...).
// ParentID is a plain key; the level is derived on demand and never stored.
type ResourceNode struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null"`
	ParentID  *uint     `gorm:"index;check:resource_nodes_not_own_parent,parent_id IS NULL OR parent_id <> id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time

	Parent *ResourceNode `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL"`
}
