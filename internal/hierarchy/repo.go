package hierarchy

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a hierarchy repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLevel(ctx context.Context, level *models.HierarchyLevel) (*models.HierarchyLevel, error) {
	if err := r.db.WithContext(ctx).Create(level).Error; err != nil {
		return nil, err
	}
	return level, nil
}

func (r *repository) FindLevelByKey(ctx context.Context, tenantID uuid.UUID, key string) (*models.HierarchyLevel, error) {
	var level models.HierarchyLevel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *repository) ListLevels(ctx context.Context, tenantID uuid.UUID) ([]models.HierarchyLevel, error) {
	var levels []models.HierarchyLevel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC").
		Find(&levels).Error
	return levels, err
}

func (r *repository) DeleteLevel(ctx context.Context, levelID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", levelID).
		Delete(&models.HierarchyLevel{}).Error
}

func (r *repository) CreateNode(ctx context.Context, node *models.HierarchyNode) (*models.HierarchyNode, error) {
	if err := r.db.WithContext(ctx).Create(node).Error; err != nil {
		return nil, err
	}
	return node, nil
}

func (r *repository) FindNodeByLabel(ctx context.Context, tenantID, levelID uuid.UUID, label string) (*models.HierarchyNode, error) {
	var node models.HierarchyNode
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND level_id = ? AND label = ?", tenantID, levelID, label).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *repository) ListNodes(ctx context.Context, tenantID, levelID uuid.UUID) ([]models.HierarchyNode, error) {
	var nodes []models.HierarchyNode
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND level_id = ?", tenantID, levelID).
		Order("label ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *repository) DeleteNode(ctx context.Context, nodeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", nodeID).
		Delete(&models.HierarchyNode{}).Error
}

func (r *repository) DeleteNodesByLevel(ctx context.Context, levelID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("level_id = ?", levelID).
		Delete(&models.HierarchyNode{}).Error
}
