package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// Order is the aggregate root of the production workflow. It owns its
// attachments, comments, status history and external jobs; cascade removal
// goes through the order service, not implicit foreign keys.
type Order struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID    uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_orders_tenant_number"`
	OrderNumber string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_tenant_number"`
	Customer    string              `gorm:"column:customer;not null"`
	ProductName *string             `gorm:"column:product_name"`
	Quantity    *int                `gorm:"column:quantity"`
	Priority    enums.OrderPriority `gorm:"column:priority;type:text;not null;default:'normal'"`
	Status      enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'draft'"`
	Source      enums.OrderSource   `gorm:"column:source;type:text;not null;default:'manual'"`
	DueDate     *time.Time          `gorm:"column:due_date"`

	HierarchyTags  types.HierarchyTags  `gorm:"column:hierarchy_tags;type:jsonb;serializer:json"`
	ChecklistState types.ChecklistState `gorm:"column:checklist_state;type:jsonb;serializer:json"`

	AssignedEngineerID   *uuid.UUID `gorm:"column:assigned_engineer_id;type:uuid"`
	AssignedEngineerName *string    `gorm:"column:assigned_engineer_name"`
	EngineerAssignedAt   *time.Time `gorm:"column:engineer_assigned_at"`
	AssignedManagerID    *uuid.UUID `gorm:"column:assigned_manager_id;type:uuid"`
	AssignedManagerName  *string    `gorm:"column:assigned_manager_name"`
	ManagerAssignedAt    *time.Time `gorm:"column:manager_assigned_at"`

	StatusChangedBy   *string    `gorm:"column:status_changed_by"`
	StatusChangedRole *string    `gorm:"column:status_changed_role"`
	StatusChangedAt   *time.Time `gorm:"column:status_changed_at"`

	AccountingID       *string        `gorm:"column:accounting_id"`
	AccountingPayload  *types.JSONMap `gorm:"column:accounting_payload;type:jsonb;serializer:json"`
	AccountingSyncedAt *time.Time     `gorm:"column:accounting_synced_at"`

	ProductionMinutes int `gorm:"column:production_minutes;not null;default:0"`

	Attachments   []OrderAttachment  `gorm:"foreignKey:OrderID"`
	Comments      []OrderComment     `gorm:"foreignKey:OrderID"`
	StatusEntries []OrderStatusEntry `gorm:"foreignKey:OrderID"`
	ExternalJobs  []ExternalJob      `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
