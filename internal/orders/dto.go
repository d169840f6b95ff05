package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// CreateOrderInput carries the fields accepted when adding an order. Source
// is set by the ingestion path (manual API, excel import, accounting sync),
// never by the client payload.
type CreateOrderInput struct {
	OrderNumber       string
	Customer          string
	ProductName       *string
	Quantity          *int
	Priority          enums.OrderPriority
	DueDate           *time.Time
	HierarchyTags     types.HierarchyTags
	Source            enums.OrderSource
	AccountingID      *string
	AccountingPayload *types.JSONMap
	InitialComment    *string
}

// UpdateOrderInput is a partial patch; nil fields stay untouched.
type UpdateOrderInput struct {
	Customer          *string
	ProductName       *string
	Quantity          *int
	Priority          *enums.OrderPriority
	DueDate           *time.Time
	ClearDueDate      bool
	HierarchyTags     types.HierarchyTags
	ProductionMinutes *int
}

// AttachmentInput carries metadata for a stored file reference.
type AttachmentInput struct {
	Name      string
	URL       string
	Category  enums.AttachmentCategory
	SizeBytes int64
	MimeType  string
}

// Filters narrows order listings.
type Filters struct {
	Status             *enums.OrderStatus
	Priority           *enums.OrderPriority
	Source             *enums.OrderSource
	AssignedEngineerID *uuid.UUID
	Unassigned         bool
	Search             string
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// StatusChangedEvent is emitted on every successful transition.
type StatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedBy   string            `json:"changed_by"`
	ChangedRole string            `json:"changed_role"`
}

// SentBackEvent is emitted when an order regresses with a reason.
type SentBackEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason"`
	ChangedBy   string            `json:"changed_by"`
	ChangedRole string            `json:"changed_role"`
}

// AssignedEvent is emitted when an engineer or manager is assigned.
type AssignedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Role         string    `json:"role"`
	AssigneeID   uuid.UUID `json:"assignee_id"`
	AssigneeName string    `json:"assignee_name"`
	AssignedBy   string    `json:"assigned_by"`
}

// ReturnedToQueueEvent is emitted when the assigned engineer steps off.
type ReturnedToQueueEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TenantID    uuid.UUID `json:"tenant_id"`
	EngineerID  uuid.UUID `json:"engineer_id"`
}
