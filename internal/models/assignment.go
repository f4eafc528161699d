package models

import "time"

// Assignment is a rental contract: one holder occupying one node over [StartDate, EndDate).
// A nil EndDate is open-ended. Number is issued once by the sequence allocator and never changes.
type Assignment struct {
	ID        uint       `gorm:"primaryKey"`
	Number    int64      `gorm:"not null;uniqueIndex"`
	NodeID    uint       `gorm:"not null;index"`
	HolderID  uint       `gorm:"not null;index"`
	StartDate time.Time  `gorm:"type:date;not null"`
	EndDate   *time.Time `gorm:"type:date;check:assignments_end_after_start,end_date IS NULL OR end_date > start_date"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time

	Node   *ResourceNode `gorm:"foreignKey:NodeID;constraint:OnDelete:RESTRICT"`
	Holder *Holder       `gorm:"foreignKey:HolderID;constraint:OnDelete:RESTRICT"`
}
