package externaljobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

// Repository defines persistence operations for external jobs and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, job *models.ExternalJob) (*models.ExternalJob, error)
	FindByID(ctx context.Context, tenantID, jobID uuid.UUID) (*models.ExternalJob, error)
	FindDetail(ctx context.Context, tenantID, jobID uuid.UUID) (*models.ExternalJob, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExternalJob, error)
	Update(ctx context.Context, jobID uuid.UUID, updates map[string]any) error
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
	DeleteAttachmentsByJob(ctx context.Context, jobID uuid.UUID) error
	DeleteStatusEntriesByJob(ctx context.Context, jobID uuid.UUID) error

	CountAttachments(ctx context.Context, jobID uuid.UUID) (int64, error)
	CreateAttachment(ctx context.Context, attachment *models.ExternalJobAttachment) (*models.ExternalJobAttachment, error)
	FindAttachment(ctx context.Context, tenantID, attachmentID uuid.UUID) (*models.ExternalJobAttachment, error)
	ListAttachments(ctx context.Context, jobID uuid.UUID) ([]models.ExternalJobAttachment, error)
	DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error

	CreateStatusEntry(ctx context.Context, entry *models.ExternalJobStatusEntry) error
	ListStatusEntries(ctx context.Context, jobID uuid.UUID) ([]models.ExternalJobStatusEntry, error)
}
