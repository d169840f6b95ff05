package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// ExternalJobAttachment mirrors OrderAttachment, scoped to one external job.
type ExternalJobAttachment struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID        uuid.UUID                `gorm:"column:job_id;type:uuid;not null;index"`
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

// ExternalJobStatusEntry mirrors OrderStatusEntry, scoped to one external job.
type ExternalJobStatusEntry struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID         uuid.UUID               `gorm:"column:job_id;type:uuid;not null;index"`
	TenantID      uuid.UUID               `gorm:"column:tenant_id;type:uuid;not null"`
	Status        enums.ExternalJobStatus `gorm:"column:status;type:text;not null"`
	ChangedByName string                  `gorm:"column:changed_by_name;not null"`
	ChangedByRole string                  `gorm:"column:changed_by_role;not null"`
	ChangedAt     time.Time               `gorm:"column:changed_at;not null"`
}
