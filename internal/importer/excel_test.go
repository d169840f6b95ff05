package importer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
)

// stubOrderStore keeps orders by number and applies the column updates the
// import paths write.
type stubOrderStore struct {
	byNumber map[string]*models.Order
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{byNumber: map[string]*models.Order{}}
}

func (s *stubOrderStore) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.byNumber[order.OrderNumber] = order
	return order, nil
}

func (s *stubOrderStore) FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	for _, order := range s.byNumber {
		if order.ID == orderID && order.TenantID == tenantID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderStore) FindDetail(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, tenantID, orderID)
}

func (s *stubOrderStore) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*models.Order, error) {
	if order, ok := s.byNumber[orderNumber]; ok && order.TenantID == tenantID {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderStore) FindSourcesByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]enums.OrderSource, error) {
	out := map[string]enums.OrderSource{}
	for _, number := range numbers {
		if order, ok := s.byNumber[number]; ok && order.TenantID == tenantID {
			out[number] = order.Source
		}
	}
	return out, nil
}

func (s *stubOrderStore) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters orders.Filters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderStore) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	for _, order := range s.byNumber {
		if order.ID != orderID {
			continue
		}
		for column, value := range updates {
			switch column {
			case "customer":
				order.Customer = value.(string)
			case "source":
				order.Source = value.(enums.OrderSource)
			case "product_name":
				v := value.(string)
				order.ProductName = &v
			case "quantity":
				v := value.(int)
				order.Quantity = &v
			case "priority":
				order.Priority = value.(enums.OrderPriority)
			}
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (s *stubOrderStore) DeleteOrder(ctx context.Context, orderID uuid.UUID) error          { return nil }
func (s *stubOrderStore) DeleteAttachmentsByOrder(ctx context.Context, id uuid.UUID) error  { return nil }
func (s *stubOrderStore) DeleteCommentsByOrder(ctx context.Context, id uuid.UUID) error     { return nil }
func (s *stubOrderStore) DeleteStatusEntriesByOrder(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubOrderStore) DeleteExternalJobsByOrder(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubOrderStore) CountAttachments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return 0, nil
}
func (s *stubOrderStore) CountComments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubOrderStore) CreateAttachment(ctx context.Context, a *models.OrderAttachment) (*models.OrderAttachment, error) {
	return a, nil
}
func (s *stubOrderStore) FindAttachment(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderAttachment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderStore) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	return nil, nil
}
func (s *stubOrderStore) DeleteAttachment(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubOrderStore) CreateComment(ctx context.Context, c *models.OrderComment) (*models.OrderComment, error) {
	return c, nil
}
func (s *stubOrderStore) FindComment(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderComment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderStore) ListComments(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error) {
	return nil, nil
}
func (s *stubOrderStore) DeleteComment(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubOrderStore) CreateStatusEntry(ctx context.Context, e *models.OrderStatusEntry) error {
	return nil
}
func (s *stubOrderStore) ListStatusEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEntry, error) {
	return nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func importActor(role enums.ActorRole) auth.Actor {
	return auth.Actor{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Role:        role,
		DisplayName: "Sam Sales",
	}
}

func TestDedupeRowsLastWins(t *testing.T) {
	one := "first"
	two := "second"
	rows := DedupeRows([]Row{
		{OrderNumber: "ORD-1", Customer: "Acme", ProductName: &one},
		{OrderNumber: "  ", Customer: "blank number"},
		{OrderNumber: " ORD-1 ", Customer: "Acme", ProductName: &two},
		{OrderNumber: "ORD-2", Customer: "Globex"},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].OrderNumber != "ORD-1" || *rows[0].ProductName != "second" {
		t.Fatalf("last occurrence must win, got %+v", rows[0])
	}
	if rows[1].OrderNumber != "ORD-2" {
		t.Fatalf("unexpected row order %+v", rows)
	}
}

func TestImportInsertsAndUpdates(t *testing.T) {
	actor := importActor(enums.ActorRoleSales)
	store := newStubOrderStore()
	store.byNumber["ORD-1"] = &models.Order{
		ID:          uuid.New(),
		TenantID:    actor.TenantID,
		OrderNumber: "ORD-1",
		Customer:    "Old Name",
		Source:      enums.OrderSourceManual,
	}

	svc, err := NewExcelService(store, stubTxRunner{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.Import(context.Background(), actor, []Row{
		{OrderNumber: "ORD-1", Customer: "Acme"},
		{OrderNumber: "ORD-2", Customer: "Globex"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Inserted != 1 || result.Updated != 1 {
		t.Fatalf("expected 1 insert / 1 update, got %+v", result)
	}
	if store.byNumber["ORD-1"].Customer != "Acme" {
		t.Fatal("existing row must be updated")
	}
	if store.byNumber["ORD-1"].Source != enums.OrderSourceExcel {
		t.Fatal("updated rows take excel provenance")
	}
	inserted := store.byNumber["ORD-2"]
	if inserted == nil || inserted.Source != enums.OrderSourceExcel || inserted.Status != enums.OrderStatusDraft {
		t.Fatalf("unexpected inserted row %+v", inserted)
	}
}

func TestImportValidation(t *testing.T) {
	actor := importActor(enums.ActorRoleSales)
	svc, _ := NewExcelService(newStubOrderStore(), stubTxRunner{})

	_, err := svc.Import(context.Background(), actor, nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}

	_, err = svc.Import(context.Background(), actor, []Row{{OrderNumber: "ORD-1", Customer: " "}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing customer, got %v", err)
	}

	_, err = svc.Import(context.Background(), actor, []Row{{OrderNumber: "ORD-1", Customer: "Acme", Priority: "whenever"}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad priority, got %v", err)
	}
}

func TestImportRejectsViewers(t *testing.T) {
	svc, _ := NewExcelService(newStubOrderStore(), stubTxRunner{})
	_, err := svc.Import(context.Background(), importActor(enums.ActorRoleViewer), []Row{{OrderNumber: "ORD-1", Customer: "Acme"}})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
