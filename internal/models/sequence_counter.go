package models

import "time"

type SequenceCounter struct {
	Name      string `gorm:"type:varchar(64);primaryKey"`
	LastValue int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&ResourceNode{},
		&Holder{},
		&Assignment{},
		&SequenceCounter{},
	}
}
