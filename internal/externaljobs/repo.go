package externaljobs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an external jobs repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.ExternalJob) (*models.ExternalJob, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, jobID uuid.UUID) (*models.ExternalJob, error) {
	var job models.ExternalJob
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, jobID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindDetail(ctx context.Context, tenantID, jobID uuid.UUID) (*models.ExternalJob, error) {
	var job models.ExternalJob
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Preload("StatusEntries").
		Where("tenant_id = ? AND id = ?", tenantID, jobID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ExternalJob, error) {
	var jobs []models.ExternalJob
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

func (r *repository) Update(ctx context.Context, jobID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ExternalJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

func (r *repository) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", jobID).
		Delete(&models.ExternalJob{}).Error
}

func (r *repository) DeleteAttachmentsByJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&models.ExternalJobAttachment{}).Error
}

func (r *repository) DeleteStatusEntriesByJob(ctx context.Context, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Delete(&models.ExternalJobStatusEntry{}).Error
}

func (r *repository) CountAttachments(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ExternalJobAttachment{}).
		Where("job_id = ?", jobID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateAttachment(ctx context.Context, attachment *models.ExternalJobAttachment) (*models.ExternalJobAttachment, error) {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *repository) FindAttachment(ctx context.Context, tenantID, attachmentID uuid.UUID) (*models.ExternalJobAttachment, error) {
	var attachment models.ExternalJobAttachment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, attachmentID).
		First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *repository) ListAttachments(ctx context.Context, jobID uuid.UUID) ([]models.ExternalJobAttachment, error) {
	var attachments []models.ExternalJobAttachment
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&attachments).Error
	return attachments, err
}

func (r *repository) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", attachmentID).
		Delete(&models.ExternalJobAttachment{}).Error
}

func (r *repository) CreateStatusEntry(ctx context.Context, entry *models.ExternalJobStatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListStatusEntries(ctx context.Context, jobID uuid.UUID) ([]models.ExternalJobStatusEntry, error) {
	var entries []models.ExternalJobStatusEntry
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("changed_at ASC").
		Find(&entries).Error
	return entries, err
}
