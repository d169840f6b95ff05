package workflowrules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

// Repository defines persistence operations for per-tenant rule sets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.WorkflowRuleSet, error)
	Upsert(ctx context.Context, row *models.WorkflowRuleSet) error
}
