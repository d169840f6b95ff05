package hierarchy

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
)

type stubHierarchyRepo struct {
	levels []models.HierarchyLevel
	nodes  []models.HierarchyNode
}

func (s *stubHierarchyRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubHierarchyRepo) CreateLevel(ctx context.Context, level *models.HierarchyLevel) (*models.HierarchyLevel, error) {
	if level.ID == uuid.Nil {
		level.ID = uuid.New()
	}
	s.levels = append(s.levels, *level)
	return level, nil
}

func (s *stubHierarchyRepo) FindLevelByKey(ctx context.Context, tenantID uuid.UUID, key string) (*models.HierarchyLevel, error) {
	for i := range s.levels {
		if s.levels[i].TenantID == tenantID && s.levels[i].Key == key {
			return &s.levels[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubHierarchyRepo) ListLevels(ctx context.Context, tenantID uuid.UUID) ([]models.HierarchyLevel, error) {
	var out []models.HierarchyLevel
	for _, level := range s.levels {
		if level.TenantID == tenantID {
			out = append(out, level)
		}
	}
	return out, nil
}

func (s *stubHierarchyRepo) DeleteLevel(ctx context.Context, levelID uuid.UUID) error {
	kept := s.levels[:0]
	for _, level := range s.levels {
		if level.ID != levelID {
			kept = append(kept, level)
		}
	}
	s.levels = kept
	return nil
}

func (s *stubHierarchyRepo) CreateNode(ctx context.Context, node *models.HierarchyNode) (*models.HierarchyNode, error) {
	if node.ID == uuid.Nil {
		node.ID = uuid.New()
	}
	s.nodes = append(s.nodes, *node)
	return node, nil
}

func (s *stubHierarchyRepo) FindNodeByLabel(ctx context.Context, tenantID, levelID uuid.UUID, label string) (*models.HierarchyNode, error) {
	for i := range s.nodes {
		if s.nodes[i].TenantID == tenantID && s.nodes[i].LevelID == levelID && s.nodes[i].Label == label {
			return &s.nodes[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubHierarchyRepo) ListNodes(ctx context.Context, tenantID, levelID uuid.UUID) ([]models.HierarchyNode, error) {
	var out []models.HierarchyNode
	for _, node := range s.nodes {
		if node.TenantID == tenantID && node.LevelID == levelID {
			out = append(out, node)
		}
	}
	return out, nil
}

func (s *stubHierarchyRepo) DeleteNode(ctx context.Context, nodeID uuid.UUID) error {
	kept := s.nodes[:0]
	for _, node := range s.nodes {
		if node.ID != nodeID {
			kept = append(kept, node)
		}
	}
	s.nodes = kept
	return nil
}

func (s *stubHierarchyRepo) DeleteNodesByLevel(ctx context.Context, levelID uuid.UUID) error {
	kept := s.nodes[:0]
	for _, node := range s.nodes {
		if node.LevelID != levelID {
			kept = append(kept, node)
		}
	}
	s.nodes = kept
	return nil
}

func hierarchyActor(role enums.ActorRole) auth.Actor {
	return auth.Actor{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Role:        role,
		DisplayName: "Ada Admin",
	}
}

func TestCreateLevelNormalizesKey(t *testing.T) {
	repo := &stubHierarchyRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	actor := hierarchyActor(enums.ActorRoleAdmin)

	level, err := svc.CreateLevel(context.Background(), actor, "  Division ", " Milling ", 1)
	if err != nil {
		t.Fatalf("create level: %v", err)
	}
	if level.Key != "division" {
		t.Fatalf("expected lowercased key, got %q", level.Key)
	}
	if level.Label != "Milling" {
		t.Fatalf("expected trimmed label, got %q", level.Label)
	}
	if level.TenantID != actor.TenantID {
		t.Fatal("level must be tenant scoped")
	}
}

func TestTaxonomyChangesRequireElevatedRole(t *testing.T) {
	svc, _ := NewService(&stubHierarchyRepo{})
	actor := hierarchyActor(enums.ActorRoleSales)

	_, err := svc.CreateLevel(context.Background(), actor, "division", "Division", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = svc.CreateNode(context.Background(), actor, uuid.New(), "Milling")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	err = svc.DeleteLevel(context.Background(), actor, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateLevelValidation(t *testing.T) {
	svc, _ := NewService(&stubHierarchyRepo{})
	actor := hierarchyActor(enums.ActorRoleOwner)

	_, err := svc.CreateLevel(context.Background(), actor, "  ", "Label", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank key, got %v", err)
	}
	_, err = svc.CreateLevel(context.Background(), actor, "division", " ", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank label, got %v", err)
	}
}

func TestDeleteLevelRemovesNodes(t *testing.T) {
	repo := &stubHierarchyRepo{}
	svc, _ := NewService(repo)
	actor := hierarchyActor(enums.ActorRoleAdmin)

	level, err := svc.CreateLevel(context.Background(), actor, "division", "Division", 0)
	if err != nil {
		t.Fatalf("create level: %v", err)
	}
	if _, err := svc.CreateNode(context.Background(), actor, level.ID, "Milling"); err != nil {
		t.Fatalf("create node: %v", err)
	}

	if err := svc.DeleteLevel(context.Background(), actor, level.ID); err != nil {
		t.Fatalf("delete level: %v", err)
	}
	if len(repo.levels) != 0 || len(repo.nodes) != 0 {
		t.Fatalf("expected level and nodes gone, got %d levels / %d nodes", len(repo.levels), len(repo.nodes))
	}
}

func TestListGroupsNodesByLevel(t *testing.T) {
	repo := &stubHierarchyRepo{}
	svc, _ := NewService(repo)
	actor := hierarchyActor(enums.ActorRoleAdmin)

	level, _ := svc.CreateLevel(context.Background(), actor, "division", "Division", 0)
	svc.CreateNode(context.Background(), actor, level.ID, "Milling")
	svc.CreateNode(context.Background(), actor, level.ID, "Welding")

	out, err := svc.List(context.Background(), actor.TenantID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 level, got %d", len(out))
	}
	if len(out[0].Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(out[0].Nodes))
	}
}

func TestMapLabelsCreatesMissingNodes(t *testing.T) {
	repo := &stubHierarchyRepo{}
	svc, _ := NewService(repo)
	actor := hierarchyActor(enums.ActorRoleAdmin)

	level, _ := svc.CreateLevel(context.Background(), actor, "division", "Division", 0)
	existing, _ := svc.CreateNode(context.Background(), actor, level.ID, "Milling")

	tags, err := svc.MapLabels(context.Background(), actor.TenantID, map[string]string{
		"division": "Milling",
		"region":   "North", // no such level; skipped
		"blank":    "  ",
	})
	if err != nil {
		t.Fatalf("map labels: %v", err)
	}
	if len(tags) != 1 {
		t.Fatalf("expected 1 tag, got %v", tags)
	}
	if tags[level.ID.String()] != existing.ID.String() {
		t.Fatalf("expected existing node reused, got %v", tags)
	}

	// An unseen label under a known level is created on the fly.
	tags, err = svc.MapLabels(context.Background(), actor.TenantID, map[string]string{
		"division": "Welding",
	})
	if err != nil {
		t.Fatalf("map labels: %v", err)
	}
	nodeID := tags[level.ID.String()]
	if nodeID == "" {
		t.Fatal("expected tag for created node")
	}
	if _, err := uuid.Parse(nodeID); err != nil {
		t.Fatalf("tag value is not a node id: %v", err)
	}
	found := false
	for _, node := range repo.nodes {
		if node.ID.String() == nodeID && strings.EqualFold(node.Label, "Welding") {
			found = true
		}
	}
	if !found {
		t.Fatal("created node missing from repository")
	}
}
