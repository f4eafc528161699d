package models

import "time"

type HolderKind string

const (
	HolderKindTenant  HolderKind = "tenant"
	HolderKindOwner   HolderKind = "owner"
	HolderKindVendor  HolderKind = "vendor"
	HolderKindContact HolderKind = "contact"
)

func (k HolderKind) Valid() bool {
	switch k {
	case HolderKindTenant, HolderKindOwner, HolderKindVendor, HolderKindContact:
		return true
	}
	return false
}

type Holder struct {
	ID        uint       `gorm:"primaryKey"`
	Name      string     `gorm:"type:varchar(200);not null"`
	Kind      HolderKind `gorm:"type:varchar(32);not null;index"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
