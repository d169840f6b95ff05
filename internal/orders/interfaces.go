package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*models.Order, error)
	FindSourcesByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]enums.OrderSource, error)
	List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteAttachmentsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteCommentsByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteStatusEntriesByOrder(ctx context.Context, orderID uuid.UUID) error
	DeleteExternalJobsByOrder(ctx context.Context, orderID uuid.UUID) error

	CountAttachments(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountComments(ctx context.Context, orderID uuid.UUID) (int64, error)

	CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error)
	FindAttachment(ctx context.Context, tenantID, attachmentID uuid.UUID) (*models.OrderAttachment, error)
	ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error)
	DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error

	CreateComment(ctx context.Context, comment *models.OrderComment) (*models.OrderComment, error)
	FindComment(ctx context.Context, tenantID, commentID uuid.UUID) (*models.OrderComment, error)
	ListComments(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error)
	DeleteComment(ctx context.Context, commentID uuid.UUID) error

	CreateStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error
	ListStatusEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEntry, error)
}
