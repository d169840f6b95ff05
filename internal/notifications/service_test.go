package notifications

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
)

type stubNotificationRepo struct {
	rows []models.Notification
}

func (s *stubNotificationRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	s.rows = append(s.rows, *notification)
	return nil
}

func (s *stubNotificationRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	var matched []models.Notification
	for _, row := range s.rows {
		if row.TenantID != params.TenantID {
			continue
		}
		if params.UnreadOnly && row.ReadAt != nil {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched, nil, nil
}

func (s *stubNotificationRepo) CountUnread(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if row.TenantID == tenantID && row.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, tenantID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	for i := range s.rows {
		if s.rows[i].ID != notificationID || s.rows[i].TenantID != tenantID {
			continue
		}
		if s.rows[i].ReadAt != nil {
			return notificationMarkResult{Found: true}, nil
		}
		s.rows[i].ReadAt = &now
		return notificationMarkResult{Found: true, Updated: true}, nil
	}
	return notificationMarkResult{}, nil
}

func (s *stubNotificationRepo) MarkAllRead(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	var updated int64
	for i := range s.rows {
		if s.rows[i].TenantID == tenantID && s.rows[i].ReadAt == nil {
			s.rows[i].ReadAt = &now
			updated++
		}
	}
	return updated, nil
}

func (s *stubNotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := s.rows[:0]
	var removed int64
	for _, row := range s.rows {
		if row.ReadAt != nil && row.ReadAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

func seedNotification(repo *stubNotificationRepo, tenantID uuid.UUID, read bool) models.Notification {
	row := models.Notification{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Type:      enums.NotificationTypeOrderStatusChanged,
		Title:     "Order moved",
		Message:   "Order ORD-1 moved from draft to ready_for_engineering.",
		CreatedAt: time.Now().UTC(),
	}
	if read {
		readAt := time.Now().UTC().Add(-time.Hour)
		row.ReadAt = &readAt
	}
	repo.rows = append(repo.rows, row)
	return row
}

func TestListFiltersUnread(t *testing.T) {
	repo := &stubNotificationRepo{}
	tenantID := uuid.New()
	seedNotification(repo, tenantID, false)
	seedNotification(repo, tenantID, true)
	seedNotification(repo, uuid.New(), false)

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.List(context.Background(), ListParams{TenantID: tenantID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 tenant notifications, got %d", len(result.Items))
	}

	result, err = svc.List(context.Background(), ListParams{TenantID: tenantID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(result.Items))
	}
}

func TestListRequiresTenant(t *testing.T) {
	svc, _ := NewService(&stubNotificationRepo{})
	_, err := svc.List(context.Background(), ListParams{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc, _ := NewService(&stubNotificationRepo{})
	_, err := svc.List(context.Background(), ListParams{TenantID: uuid.New(), Cursor: "not-base64!"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnreadCount(t *testing.T) {
	repo := &stubNotificationRepo{}
	tenantID := uuid.New()
	seedNotification(repo, tenantID, false)
	seedNotification(repo, tenantID, false)
	seedNotification(repo, tenantID, true)

	svc, _ := NewService(repo)
	count, err := svc.UnreadCount(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 unread, got %d", count)
	}
}

func TestMarkReadNotFound(t *testing.T) {
	svc, _ := NewService(&stubNotificationRepo{})
	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	repo := &stubNotificationRepo{}
	tenantID := uuid.New()
	row := seedNotification(repo, tenantID, false)

	svc, _ := NewService(repo)
	if err := svc.MarkRead(context.Background(), tenantID, row.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	// Second call finds the row already read and still succeeds.
	if err := svc.MarkRead(context.Background(), tenantID, row.ID); err != nil {
		t.Fatalf("second mark read: %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &stubNotificationRepo{}
	tenantID := uuid.New()
	seedNotification(repo, tenantID, false)
	seedNotification(repo, tenantID, false)
	seedNotification(repo, uuid.New(), false)

	svc, _ := NewService(repo)
	updated, err := svc.MarkAllRead(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 updates, got %d", updated)
	}

	count, _ := svc.UnreadCount(context.Background(), tenantID)
	if count != 0 {
		t.Fatalf("expected no unread left, got %d", count)
	}
}
