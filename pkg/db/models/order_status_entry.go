package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// OrderStatusEntry is an append-only audit record of a status transition.
// Rows are never mutated or individually deleted.
type OrderStatusEntry struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	TenantID      uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ChangedByName string            `gorm:"column:changed_by_name;not null"`
	ChangedByRole string            `gorm:"column:changed_by_role;not null"`
	ChangedAt     time.Time         `gorm:"column:changed_at;not null"`
}
