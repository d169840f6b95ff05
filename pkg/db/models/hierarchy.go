package models

import (
	"time"

	"github.com/google/uuid"
)

// HierarchyLevel is a named classification level (e.g. contract, category,
// product) used to tag orders.
type HierarchyLevel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Key       string    `gorm:"column:key;not null"`
	Label     string    `gorm:"column:label;not null"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// HierarchyNode is a selectable label within a classification level.
type HierarchyNode struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	LevelID   uuid.UUID `gorm:"column:level_id;type:uuid;not null;index"`
	Label     string    `gorm:"column:label;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
