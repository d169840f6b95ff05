package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderComment is a free-text note owned by exactly one order. Only the
// author or an elevated role may remove it.
type OrderComment struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	TenantID   uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`
	AuthorID   uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	AuthorName string    `gorm:"column:author_name;not null"`
	AuthorRole string    `gorm:"column:author_role;not null"`
	Message    string    `gorm:"column:message;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
