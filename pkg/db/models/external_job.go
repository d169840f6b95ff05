package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// ExternalJob is work subcontracted to a partner, owned by exactly one order.
type ExternalJob struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	TenantID uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`

	PartnerID    *string `gorm:"column:partner_id"`
	PartnerName  string  `gorm:"column:partner_name;not null"`
	PartnerEmail *string `gorm:"column:partner_email"`

	RequestMode         enums.ExternalJobRequestMode `gorm:"column:request_mode;type:text;not null;default:'manual'"`
	Status              enums.ExternalJobStatus      `gorm:"column:status;type:text;not null;default:'requested'"`
	ExternalOrderNumber *string                      `gorm:"column:external_order_number"`
	Quantity            *int                         `gorm:"column:quantity"`
	DueDate             *time.Time                   `gorm:"column:due_date"`

	PartnerRequestedAt *time.Time `gorm:"column:partner_requested_at"`
	PartnerRespondedAt *time.Time `gorm:"column:partner_responded_at"`
	RequestNote        *string    `gorm:"column:request_note"`
	ResponseNote       *string    `gorm:"column:response_note"`

	DeliveryNoteNumber *string    `gorm:"column:delivery_note_number"`
	ReceivedAt         *time.Time `gorm:"column:received_at"`
	ReceivedBy         *string    `gorm:"column:received_by"`

	Attachments   []ExternalJobAttachment  `gorm:"foreignKey:JobID"`
	StatusEntries []ExternalJobStatusEntry `gorm:"foreignKey:JobID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
