package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// OrderAttachment is a file reference owned by exactly one order. URL may be
// a raw storage path; resolving a signed URL is the storage collaborator's job.
type OrderAttachment struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	TenantID     uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null"`
	Name         string                   `gorm:"column:name;not null"`
	URL          string                   `gorm:"column:url;not null"`
	Category     enums.AttachmentCategory `gorm:"column:category;type:text;not null;default:'other'"`
	SizeBytes    int64                    `gorm:"column:size_bytes;not null;default:0"`
	MimeType     string                   `gorm:"column:mime_type"`
	UploaderName string                   `gorm:"column:uploader_name;not null"`
	UploaderRole string                   `gorm:"column:uploader_role;not null"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
}
