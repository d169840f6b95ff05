package hierarchy

import (
	"context"
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

// LevelWithNodes bundles a level and its selectable nodes for listings.
type LevelWithNodes struct {
	Level models.HierarchyLevel  `json:"level"`
	Nodes []models.HierarchyNode `json:"nodes"`
}

// Service exposes classification taxonomy operations.
type Service interface {
	List(ctx context.Context, tenantID uuid.UUID) ([]LevelWithNodes, error)
	CreateLevel(ctx context.Context, actor auth.Actor, key, label string, position int) (*models.HierarchyLevel, error)
	DeleteLevel(ctx context.Context, actor auth.Actor, levelID uuid.UUID) error
	CreateNode(ctx context.Context, actor auth.Actor, levelID uuid.UUID, label string) (*models.HierarchyNode, error)
	DeleteNode(ctx context.Context, actor auth.Actor, nodeID uuid.UUID) error

	// MapLabels resolves level-key → node-label pairs into hierarchy tags,
	// creating unseen nodes on the fly. Unknown level keys are skipped.
	MapLabels(ctx context.Context, tenantID uuid.UUID, labels map[string]string) (types.HierarchyTags, error)
}

type service struct {
	repo Repository
}

// NewService builds a hierarchy service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("hierarchy repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID) ([]LevelWithNodes, error) {
	levels, err := s.repo.ListLevels(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hierarchy levels")
	}
	out := make([]LevelWithNodes, 0, len(levels))
	for _, level := range levels {
		nodes, err := s.repo.ListNodes(ctx, tenantID, level.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list hierarchy nodes")
		}
		out = append(out, LevelWithNodes{Level: level, Nodes: nodes})
	}
	return out, nil
}

func (s *service) CreateLevel(ctx context.Context, actor auth.Actor, key, label string, position int) (*models.HierarchyLevel, error) {
	if !actor.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "taxonomy changes require an elevated role")
	}
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "level key required")
	}
	if strings.TrimSpace(label) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "level label required")
	}
	level := &models.HierarchyLevel{
		TenantID: actor.TenantID,
		Key:      key,
		Label:    strings.TrimSpace(label),
		Position: position,
	}
	if _, err := s.repo.CreateLevel(ctx, level); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hierarchy level")
	}
	return level, nil
}

func (s *service) DeleteLevel(ctx context.Context, actor auth.Actor, levelID uuid.UUID) error {
	if !actor.IsElevated() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "taxonomy changes require an elevated role")
	}
	if err := s.repo.DeleteNodesByLevel(ctx, levelID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete level nodes")
	}
	if err := s.repo.DeleteLevel(ctx, levelID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete hierarchy level")
	}
	return nil
}

func (s *service) CreateNode(ctx context.Context, actor auth.Actor, levelID uuid.UUID, label string) (*models.HierarchyNode, error) {
	if !actor.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "taxonomy changes require an elevated role")
	}
	if strings.TrimSpace(label) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "node label required")
	}
	node := &models.HierarchyNode{
		TenantID: actor.TenantID,
		LevelID:  levelID,
		Label:    strings.TrimSpace(label),
	}
	if _, err := s.repo.CreateNode(ctx, node); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hierarchy node")
	}
	return node, nil
}

func (s *service) DeleteNode(ctx context.Context, actor auth.Actor, nodeID uuid.UUID) error {
	if !actor.IsElevated() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "taxonomy changes require an elevated role")
	}
	if err := s.repo.DeleteNode(ctx, nodeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete hierarchy node")
	}
	return nil
}

func (s *service) MapLabels(ctx context.Context, tenantID uuid.UUID, labels map[string]string) (types.HierarchyTags, error) {
	tags := types.HierarchyTags{}
	for key, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		level, err := s.repo.FindLevelByKey(ctx, tenantID, key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up hierarchy level")
		}
		node, err := s.repo.FindNodeByLabel(ctx, tenantID, level.ID, label)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up hierarchy node")
			}
			node = &models.HierarchyNode{
				TenantID: tenantID,
				LevelID:  level.ID,
				Label:    label,
			}
			if _, err := s.repo.CreateNode(ctx, node); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hierarchy node")
			}
		}
		tags[level.ID.String()] = node.ID.String()
	}
	return tags, nil
}
