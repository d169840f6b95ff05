package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// WorkflowRuleSet holds one tenant's workflow configuration: checklist item
// definitions, per-transition gating requirements, return reasons and status
// label overrides. Stored as a single jsonb document per tenant.
type WorkflowRuleSet struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID     `gorm:"column:tenant_id;type:uuid;not null;unique"`
	Rules     types.JSONMap `gorm:"column:rules;type:jsonb;serializer:json"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
