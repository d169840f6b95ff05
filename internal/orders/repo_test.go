package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  customer TEXT NOT NULL,
  product_name TEXT,
  quantity INTEGER,
  priority TEXT NOT NULL DEFAULT 'normal',
  status TEXT NOT NULL DEFAULT 'draft',
  source TEXT NOT NULL DEFAULT 'manual',
  due_date DATETIME,
  hierarchy_tags TEXT,
  checklist_state TEXT,
  assigned_engineer_id TEXT,
  assigned_engineer_name TEXT,
  engineer_assigned_at DATETIME,
  assigned_manager_id TEXT,
  assigned_manager_name TEXT,
  manager_assigned_at DATETIME,
  status_changed_by TEXT,
  status_changed_role TEXT,
  status_changed_at DATETIME,
  accounting_id TEXT,
  accounting_payload TEXT,
  accounting_synced_at DATETIME,
  production_minutes INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	comments := `
CREATE TABLE IF NOT EXISTS order_comments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  author_id TEXT NOT NULL,
  author_name TEXT NOT NULL,
  author_role TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME
);`
	attachments := `
CREATE TABLE IF NOT EXISTS order_attachments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  url TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'other',
  size_bytes INTEGER NOT NULL DEFAULT 0,
  mime_type TEXT,
  uploader_name TEXT NOT NULL,
  uploader_role TEXT NOT NULL,
  created_at DATETIME
);`
	statusEntries := `
CREATE TABLE IF NOT EXISTS order_status_entries (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  status TEXT NOT NULL,
  changed_by_name TEXT NOT NULL,
  changed_by_role TEXT NOT NULL,
  changed_at DATETIME NOT NULL
);`
	externalJobs := `
CREATE TABLE IF NOT EXISTS external_jobs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  partner_id TEXT,
  partner_name TEXT NOT NULL,
  partner_email TEXT,
  request_mode TEXT NOT NULL DEFAULT 'manual',
  status TEXT NOT NULL DEFAULT 'requested',
  external_order_number TEXT,
  quantity INTEGER,
  due_date DATETIME,
  partner_requested_at DATETIME,
  partner_responded_at DATETIME,
  request_note TEXT,
  response_note TEXT,
  delivery_note_number TEXT,
  received_at DATETIME,
  received_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	jobAttachments := `
CREATE TABLE IF NOT EXISTS external_job_attachments (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  url TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'other',
  size_bytes INTEGER NOT NULL DEFAULT 0,
  mime_type TEXT,
  uploader_name TEXT NOT NULL,
  uploader_role TEXT NOT NULL,
  created_at DATETIME
);`
	jobStatusEntries := `
CREATE TABLE IF NOT EXISTS external_job_status_entries (
  id TEXT PRIMARY KEY,
  job_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  status TEXT NOT NULL,
  changed_by_name TEXT NOT NULL,
  changed_by_role TEXT NOT NULL,
  changed_at DATETIME NOT NULL
);`
	for _, stmt := range []string{orders, comments, attachments, statusEntries, externalJobs, jobAttachments, jobStatusEntries} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	t.Cleanup(func() {
		for _, table := range []string{
			"external_job_status_entries", "external_job_attachments", "external_jobs",
			"order_status_entries", "order_attachments", "order_comments", "orders",
		} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func newOrder(t *testing.T, db *gorm.DB, tenantID uuid.UUID, number string, status enums.OrderStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		TenantID:       tenantID,
		OrderNumber:    number,
		Customer:       "Acme Tooling",
		Priority:       enums.OrderPriorityNormal,
		Status:         status,
		Source:         enums.OrderSourceManual,
		ChecklistState: types.ChecklistState{},
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepoFindByIDScopedToTenant(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	order := newOrder(t, db, tenantA, "ORD-1", enums.OrderStatusDraft)

	found, err := repo.FindByID(ctx, tenantA, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, found.OrderNumber)

	_, err = repo.FindByID(ctx, tenantB, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoNormalizesLegacyStatuses(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-2", enums.OrderStatusDraft)
	require.NoError(t, db.Exec("UPDATE orders SET status = 'in_progress' WHERE id = ?", order.ID).Error)

	found, err := repo.FindByID(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusInEngineering, found.Status)

	require.NoError(t, db.Exec("UPDATE orders SET status = 'pending' WHERE id = ?", order.ID).Error)
	found, err = repo.FindByID(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDraft, found.Status)
}

func TestRepoListFilters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	draft := newOrder(t, db, tenantID, "ORD-10", enums.OrderStatusDraft)
	ready := newOrder(t, db, tenantID, "ORD-11", enums.OrderStatusReadyForEngineering)
	engineerID := uuid.New()
	require.NoError(t, db.Exec(
		"UPDATE orders SET assigned_engineer_id = ? WHERE id = ?", engineerID, ready.ID,
	).Error)
	newOrder(t, db, uuid.New(), "ORD-12", enums.OrderStatusDraft)

	status := enums.OrderStatusDraft
	list, err := repo.List(ctx, tenantID, pagination.Params{}, Filters{Status: &status})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, draft.ID, list.Orders[0].ID)

	list, err = repo.List(ctx, tenantID, pagination.Params{}, Filters{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, draft.ID, list.Orders[0].ID)

	list, err = repo.List(ctx, tenantID, pagination.Params{}, Filters{AssignedEngineerID: &engineerID})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, ready.ID, list.Orders[0].ID)

	list, err = repo.List(ctx, tenantID, pagination.Params{}, Filters{Search: "ORD-1"})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 2)
}

func TestRepoListCursorPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		order := newOrder(t, db, tenantID, fmt.Sprintf("ORD-2%d", i), enums.OrderStatusDraft)
		require.NoError(t, db.Exec(
			"UPDATE orders SET created_at = ? WHERE id = ?",
			base.Add(time.Duration(i)*time.Minute), order.ID,
		).Error)
	}

	first, err := repo.List(ctx, tenantID, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "ORD-24", first.Orders[0].OrderNumber)

	second, err := repo.List(ctx, tenantID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Equal(t, "ORD-22", second.Orders[0].OrderNumber)

	third, err := repo.List(ctx, tenantID, pagination.Params{Limit: 2, Cursor: second.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	assert.Empty(t, third.NextCursor)
	assert.Equal(t, "ORD-20", third.Orders[0].OrderNumber)
}

func TestRepoUpdateColumns(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-30", enums.OrderStatusDraft)

	now := time.Now().UTC()
	err := repo.Update(ctx, order.ID, map[string]any{
		"status":              enums.OrderStatusReadyForEngineering,
		"status_changed_by":   "Sam Sales",
		"status_changed_role": "sales",
		"status_changed_at":   now,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForEngineering, found.Status)
	require.NotNil(t, found.StatusChangedBy)
	assert.Equal(t, "Sam Sales", *found.StatusChangedBy)
}

func TestRepoFindSourcesByNumbers(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	manual := newOrder(t, db, tenantID, "ORD-40", enums.OrderStatusDraft)
	excel := newOrder(t, db, tenantID, "ORD-41", enums.OrderStatusDraft)
	require.NoError(t, db.Exec("UPDATE orders SET source = 'excel' WHERE id = ?", excel.ID).Error)

	sources, err := repo.FindSourcesByNumbers(ctx, tenantID, []string{"ORD-40", "ORD-41", "ORD-99"})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, enums.OrderSourceManual, sources[manual.OrderNumber])
	assert.Equal(t, enums.OrderSourceExcel, sources[excel.OrderNumber])
}

func TestRepoDeleteExternalJobsByOrderRemovesChildren(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-50", enums.OrderStatusInEngineering)
	job := &models.ExternalJob{
		ID:          uuid.New(),
		OrderID:     order.ID,
		TenantID:    tenantID,
		PartnerName: "Anodizing GmbH",
		RequestMode: enums.ExternalJobRequestModeManual,
		Status:      enums.ExternalJobStatusRequested,
	}
	require.NoError(t, db.Create(job).Error)
	require.NoError(t, db.Create(&models.ExternalJobAttachment{
		ID:           uuid.New(),
		JobID:        job.ID,
		TenantID:     tenantID,
		Name:         "delivery-note.pdf",
		URL:          "https://files.example.com/delivery-note.pdf",
		Category:     enums.AttachmentCategoryOther,
		UploaderName: "Eva Engineer",
		UploaderRole: "engineering",
	}).Error)
	require.NoError(t, db.Create(&models.ExternalJobStatusEntry{
		ID:            uuid.New(),
		JobID:         job.ID,
		TenantID:      tenantID,
		Status:        enums.ExternalJobStatusRequested,
		ChangedByName: "Eva Engineer",
		ChangedByRole: "engineering",
		ChangedAt:     time.Now().UTC(),
	}).Error)

	require.NoError(t, repo.DeleteExternalJobsByOrder(ctx, order.ID))

	var jobs, jobAttachments, jobEntries int64
	require.NoError(t, db.Model(&models.ExternalJob{}).Where("order_id = ?", order.ID).Count(&jobs).Error)
	require.NoError(t, db.Model(&models.ExternalJobAttachment{}).Where("job_id = ?", job.ID).Count(&jobAttachments).Error)
	require.NoError(t, db.Model(&models.ExternalJobStatusEntry{}).Where("job_id = ?", job.ID).Count(&jobEntries).Error)
	assert.Zero(t, jobs)
	assert.Zero(t, jobAttachments)
	assert.Zero(t, jobEntries)
}

func TestRepoCommentAndAttachmentLifecycle(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	order := newOrder(t, db, tenantID, "ORD-60", enums.OrderStatusDraft)

	comment := &models.OrderComment{
		ID:         uuid.New(),
		OrderID:    order.ID,
		TenantID:   tenantID,
		AuthorID:   uuid.New(),
		AuthorName: "Sam Sales",
		AuthorRole: "sales",
		Message:    "customer confirmed the quantity",
	}
	_, err := repo.CreateComment(ctx, comment)
	require.NoError(t, err)

	count, err := repo.CountComments(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.FindComment(ctx, uuid.New(), comment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.DeleteComment(ctx, comment.ID))
	count, err = repo.CountComments(ctx, order.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	attachment := &models.OrderAttachment{
		ID:           uuid.New(),
		OrderID:      order.ID,
		TenantID:     tenantID,
		Name:         "spec-sheet.pdf",
		URL:          "https://files.example.com/spec-sheet.pdf",
		Category:     enums.AttachmentCategoryTechnicalDocs,
		UploaderName: "Eva Engineer",
		UploaderRole: "engineering",
	}
	_, err = repo.CreateAttachment(ctx, attachment)
	require.NoError(t, err)

	listed, err := repo.ListAttachments(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "spec-sheet.pdf", listed[0].Name)
}
