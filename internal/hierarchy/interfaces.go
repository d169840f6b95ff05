package hierarchy

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

// Repository defines persistence operations for classification levels and nodes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateLevel(ctx context.Context, level *models.HierarchyLevel) (*models.HierarchyLevel, error)
	FindLevelByKey(ctx context.Context, tenantID uuid.UUID, key string) (*models.HierarchyLevel, error)
	ListLevels(ctx context.Context, tenantID uuid.UUID) ([]models.HierarchyLevel, error)
	DeleteLevel(ctx context.Context, levelID uuid.UUID) error

	CreateNode(ctx context.Context, node *models.HierarchyNode) (*models.HierarchyNode, error)
	FindNodeByLabel(ctx context.Context, tenantID, levelID uuid.UUID, label string) (*models.HierarchyNode, error)
	ListNodes(ctx context.Context, tenantID, levelID uuid.UUID) ([]models.HierarchyNode, error)
	DeleteNode(ctx context.Context, nodeID uuid.UUID) error
	DeleteNodesByLevel(ctx context.Context, levelID uuid.UUID) error
}
