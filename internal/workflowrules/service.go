package workflowrules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// Service exposes tenant workflow configuration.
type Service interface {
	Get(ctx context.Context, tenantID uuid.UUID) (RuleSet, error)
	Update(ctx context.Context, actor auth.Actor, rules RuleSet) (RuleSet, error)
}

type service struct {
	repo Repository
}

// NewService builds a workflow rules service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("workflow rules repository required")
	}
	return &service{repo: repo}, nil
}

// Get returns the tenant's rule set, falling back to Defaults when the tenant
// never customized its workflow.
func (s *service) Get(ctx context.Context, tenantID uuid.UUID) (RuleSet, error) {
	if tenantID == uuid.Nil {
		return RuleSet{}, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	row, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Defaults(), nil
		}
		return RuleSet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load workflow rules")
	}
	return decodeRules(row)
}

// Update replaces the tenant's rule set. Only elevated roles may change
// workflow configuration.
func (s *service) Update(ctx context.Context, actor auth.Actor, rules RuleSet) (RuleSet, error) {
	if actor.TenantID == uuid.Nil {
		return RuleSet{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	if !actor.IsElevated() {
		return RuleSet{}, pkgerrors.New(pkgerrors.CodeForbidden, "workflow configuration requires an elevated role")
	}
	if err := validateRules(rules); err != nil {
		return RuleSet{}, err
	}

	encoded, err := encodeRules(rules)
	if err != nil {
		return RuleSet{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode workflow rules")
	}
	row := models.WorkflowRuleSet{
		TenantID: actor.TenantID,
		Rules:    encoded,
	}
	if err := s.repo.Upsert(ctx, &row); err != nil {
		return RuleSet{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store workflow rules")
	}
	return rules, nil
}

func validateRules(rules RuleSet) error {
	seen := map[string]bool{}
	for _, item := range rules.ChecklistItems {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "checklist item id required")
		}
		if strings.TrimSpace(item.Label) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "checklist item label required")
		}
		if seen[id] {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate checklist item %q", id))
		}
		seen[id] = true
		for _, status := range item.RequiredFor {
			if !status.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q in checklist item %q", status, id))
			}
		}
	}
	for status, req := range rules.Transitions {
		if !status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown transition target %q", status))
		}
		if req.MinAttachments < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "min attachments cannot be negative")
		}
	}
	for status, min := range rules.ExternalJobMinAttachments {
		if !status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown external job status %q", status))
		}
		if min < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "min attachments cannot be negative")
		}
	}
	return nil
}

func encodeRules(rules RuleSet) (types.JSONMap, error) {
	raw, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	var out types.JSONMap
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeRules(row *models.WorkflowRuleSet) (RuleSet, error) {
	if row == nil || len(row.Rules) == 0 {
		return Defaults(), nil
	}
	raw, err := json.Marshal(row.Rules)
	if err != nil {
		return RuleSet{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode stored rules")
	}
	var rules RuleSet
	if err := json.Unmarshal(raw, &rules); err != nil {
		return RuleSet{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode stored rules")
	}
	return rules, nil
}
