package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	normalizeOrder(&order)
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Comments").
		Preload("StatusEntries").
		Preload("ExternalJobs").
		Preload("ExternalJobs.Attachments").
		Preload("ExternalJobs.StatusEntries").
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	normalizeOrder(&order)
	return &order, nil
}

func (r *repository) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_number = ?", tenantID, orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	normalizeOrder(&order)
	return &order, nil
}

func (r *repository) FindSourcesByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]enums.OrderSource, error) {
	out := make(map[string]enums.OrderSource, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}
	var rows []struct {
		OrderNumber string
		Source      enums.OrderSource
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("order_number", "source").
		Where("tenant_id = ? AND order_number IN ?", tenantID, numbers).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.OrderNumber] = row.Source
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("tenant_id = ?", tenantID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}
	if filters.Source != nil {
		query = query.Where("source = ?", *filters.Source)
	}
	if filters.AssignedEngineerID != nil {
		query = query.Where("assigned_engineer_id = ?", *filters.AssignedEngineerID)
	}
	if filters.Unassigned {
		query = query.Where("assigned_engineer_id IS NULL")
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("order_number LIKE ? OR customer LIKE ?", pattern, pattern)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var rows []models.Order
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	for i := range rows {
		normalizeOrder(&rows[i])
	}
	list.Orders = rows
	return list, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&models.Order{}).Error
}

func (r *repository) DeleteAttachmentsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderAttachment{}).Error
}

func (r *repository) DeleteCommentsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderComment{}).Error
}

func (r *repository) DeleteStatusEntriesByOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderStatusEntry{}).Error
}

func (r *repository) DeleteExternalJobsByOrder(ctx context.Context, orderID uuid.UUID) error {
	jobIDs := r.db.Model(&models.ExternalJob{}).
		Select("id").
		Where("order_id = ?", orderID)

	if err := r.db.WithContext(ctx).
		Where("job_id IN (?)", jobIDs).
		Delete(&models.ExternalJobAttachment{}).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("job_id IN (?)", jobIDs).
		Delete(&models.ExternalJobStatusEntry{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.ExternalJob{}).Error
}

func (r *repository) CountAttachments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderAttachment{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountComments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderComment{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error) {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *repository) FindAttachment(ctx context.Context, tenantID, attachmentID uuid.UUID) (*models.OrderAttachment, error) {
	var attachment models.OrderAttachment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, attachmentID).
		First(&attachment).Error
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *repository) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	var attachments []models.OrderAttachment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&attachments).Error
	return attachments, err
}

func (r *repository) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", attachmentID).
		Delete(&models.OrderAttachment{}).Error
}

func (r *repository) CreateComment(ctx context.Context, comment *models.OrderComment) (*models.OrderComment, error) {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *repository) FindComment(ctx context.Context, tenantID, commentID uuid.UUID) (*models.OrderComment, error) {
	var comment models.OrderComment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, commentID).
		First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *repository) ListComments(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error) {
	var comments []models.OrderComment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

func (r *repository) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", commentID).
		Delete(&models.OrderComment{}).Error
}

func (r *repository) CreateStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListStatusEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEntry, error) {
	var entries []models.OrderStatusEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC").
		Find(&entries).Error
	return entries, err
}

// normalizeOrder maps legacy persisted status values onto the current enum.
// This is the only place legacy values are translated; the state machine
// never sees them.
func normalizeOrder(order *models.Order) {
	order.Status = enums.NormalizeOrderStatus(string(order.Status))
}
