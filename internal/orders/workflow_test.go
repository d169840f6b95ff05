package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// stubOrderRepo holds one order in memory and applies column updates the way
// the real repository would.
type stubOrderRepo struct {
	order         *models.Order
	comments      []models.OrderComment
	attachments   []models.OrderAttachment
	statusEntries []models.OrderStatusEntry
	createErr     error
	findErr       error
	updateErr     error
	commentErr    error
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	s.order = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.ID != orderID || s.order.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrderRepo) FindDetail(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, tenantID, orderID)
}

func (s *stubOrderRepo) FindByNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*models.Order, error) {
	if s.order == nil || s.order.OrderNumber != orderNumber {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrderRepo) FindSourcesByNumbers(ctx context.Context, tenantID uuid.UUID, numbers []string) (map[string]enums.OrderSource, error) {
	out := map[string]enums.OrderSource{}
	if s.order != nil {
		for _, n := range numbers {
			if s.order.OrderNumber == n {
				out[n] = s.order.Source
			}
		}
	}
	return out, nil
}

func (s *stubOrderRepo) List(ctx context.Context, tenantID uuid.UUID, params pagination.Params, filters Filters) (*OrderList, error) {
	return &OrderList{}, nil
}

func (s *stubOrderRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.order == nil || s.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	for column, value := range updates {
		applyOrderColumn(s.order, column, value)
	}
	return nil
}

func applyOrderColumn(order *models.Order, column string, value any) {
	switch column {
	case "status":
		order.Status = value.(enums.OrderStatus)
	case "status_changed_by":
		v := value.(string)
		order.StatusChangedBy = &v
	case "status_changed_role":
		v := value.(string)
		order.StatusChangedRole = &v
	case "status_changed_at":
		v := value.(time.Time)
		order.StatusChangedAt = &v
	case "source":
		order.Source = value.(enums.OrderSource)
	case "checklist_state":
		order.ChecklistState = value.(types.ChecklistState)
	case "assigned_engineer_id":
		if value == nil {
			order.AssignedEngineerID = nil
		} else {
			v := value.(uuid.UUID)
			order.AssignedEngineerID = &v
		}
	case "assigned_engineer_name":
		if value == nil {
			order.AssignedEngineerName = nil
		} else {
			v := value.(string)
			order.AssignedEngineerName = &v
		}
	case "engineer_assigned_at":
		if value == nil {
			order.EngineerAssignedAt = nil
		} else if v, ok := value.(*time.Time); ok {
			order.EngineerAssignedAt = v
		} else {
			v := value.(time.Time)
			order.EngineerAssignedAt = &v
		}
	case "assigned_manager_id":
		if value == nil {
			order.AssignedManagerID = nil
		} else {
			v := value.(uuid.UUID)
			order.AssignedManagerID = &v
		}
	case "assigned_manager_name":
		if value == nil {
			order.AssignedManagerName = nil
		} else {
			v := value.(string)
			order.AssignedManagerName = &v
		}
	case "manager_assigned_at":
		if value == nil {
			order.ManagerAssignedAt = nil
		} else if v, ok := value.(*time.Time); ok {
			order.ManagerAssignedAt = v
		} else {
			v := value.(time.Time)
			order.ManagerAssignedAt = &v
		}
	}
}

func (s *stubOrderRepo) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	s.order = nil
	return nil
}
func (s *stubOrderRepo) DeleteAttachmentsByOrder(ctx context.Context, orderID uuid.UUID) error {
	s.attachments = nil
	return nil
}
func (s *stubOrderRepo) DeleteCommentsByOrder(ctx context.Context, orderID uuid.UUID) error {
	s.comments = nil
	return nil
}
func (s *stubOrderRepo) DeleteStatusEntriesByOrder(ctx context.Context, orderID uuid.UUID) error {
	s.statusEntries = nil
	return nil
}
func (s *stubOrderRepo) DeleteExternalJobsByOrder(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

func (s *stubOrderRepo) CountAttachments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return int64(len(s.attachments)), nil
}
func (s *stubOrderRepo) CountComments(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return int64(len(s.comments)), nil
}

func (s *stubOrderRepo) CreateAttachment(ctx context.Context, attachment *models.OrderAttachment) (*models.OrderAttachment, error) {
	if attachment.ID == uuid.Nil {
		attachment.ID = uuid.New()
	}
	s.attachments = append(s.attachments, *attachment)
	return attachment, nil
}
func (s *stubOrderRepo) FindAttachment(ctx context.Context, tenantID, attachmentID uuid.UUID) (*models.OrderAttachment, error) {
	for i := range s.attachments {
		if s.attachments[i].ID == attachmentID && s.attachments[i].TenantID == tenantID {
			return &s.attachments[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderRepo) ListAttachments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	return s.attachments, nil
}
func (s *stubOrderRepo) DeleteAttachment(ctx context.Context, attachmentID uuid.UUID) error {
	kept := s.attachments[:0]
	for _, a := range s.attachments {
		if a.ID != attachmentID {
			kept = append(kept, a)
		}
	}
	s.attachments = kept
	return nil
}

func (s *stubOrderRepo) CreateComment(ctx context.Context, comment *models.OrderComment) (*models.OrderComment, error) {
	if s.commentErr != nil {
		return nil, s.commentErr
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	s.comments = append(s.comments, *comment)
	return comment, nil
}
func (s *stubOrderRepo) FindComment(ctx context.Context, tenantID, commentID uuid.UUID) (*models.OrderComment, error) {
	for i := range s.comments {
		if s.comments[i].ID == commentID && s.comments[i].TenantID == tenantID {
			return &s.comments[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubOrderRepo) ListComments(ctx context.Context, orderID uuid.UUID) ([]models.OrderComment, error) {
	return s.comments, nil
}
func (s *stubOrderRepo) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	kept := s.comments[:0]
	for _, c := range s.comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	return nil
}

func (s *stubOrderRepo) CreateStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.statusEntries = append(s.statusEntries, *entry)
	return nil
}
func (s *stubOrderRepo) ListStatusEntries(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEntry, error) {
	return s.statusEntries, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRules struct {
	rules workflowrules.RuleSet
	err   error
}

func (s stubRules) Get(ctx context.Context, tenantID uuid.UUID) (workflowrules.RuleSet, error) {
	if s.err != nil {
		return workflowrules.RuleSet{}, s.err
	}
	return s.rules, nil
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func testActor(role enums.ActorRole) auth.Actor {
	return auth.Actor{
		UserID:      uuid.New(),
		TenantID:    uuid.New(),
		Role:        role,
		DisplayName: "Test User",
	}
}

func readyOrder(tenantID uuid.UUID, status enums.OrderStatus) *models.Order {
	name := "gear housing"
	qty := 4
	due := time.Now().UTC().Add(48 * time.Hour)
	return &models.Order{
		ID:          uuid.New(),
		TenantID:    tenantID,
		OrderNumber: "ORD-7",
		Customer:    "Initech",
		ProductName: &name,
		Quantity:    &qty,
		DueDate:     &due,
		Status:      status,
		Source:      enums.OrderSourceManual,
		Priority:    enums.OrderPriorityNormal,
		ChecklistState: types.ChecklistState{
			"inputs_confirmed":  true,
			"drawings_approved": true,
		},
	}
}

func newTestWorkflow(t *testing.T, repo *stubOrderRepo, events *recordingOutbox) Workflow {
	t.Helper()
	wf, err := NewWorkflow(repo, stubRules{rules: workflowrules.Defaults()}, stubTxRunner{}, events)
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	return wf
}

func TestChangeStatusForwardRecordsHistoryAndEvent(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != enums.OrderStatusReadyForEngineering {
		t.Fatalf("expected ready_for_engineering, got %s", updated.Status)
	}
	if updated.StatusChangedBy == nil || *updated.StatusChangedBy != actor.DisplayName {
		t.Fatalf("expected status stamp by %q, got %v", actor.DisplayName, updated.StatusChangedBy)
	}
	if len(repo.statusEntries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.statusEntries))
	}
	entry := repo.statusEntries[0]
	if entry.Status != enums.OrderStatusReadyForEngineering || entry.ChangedByName != actor.DisplayName {
		t.Fatalf("unexpected history entry %+v", entry)
	}
	if updated.StatusChangedAt == nil || !updated.StatusChangedAt.Equal(entry.ChangedAt) {
		t.Fatal("status stamp and history entry must share the same timestamp")
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	if events.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected event type %s", events.events[0].EventType)
	}
	payload, ok := events.events[0].Data.(StatusChangedEvent)
	if !ok {
		t.Fatalf("unexpected payload %T", events.events[0].Data)
	}
	if payload.From != enums.OrderStatusDraft || payload.To != enums.OrderStatusReadyForEngineering {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestChangeStatusSameStatusIsNoOp(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusDraft)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if updated.Status != enums.OrderStatusDraft {
		t.Fatalf("expected draft, got %s", updated.Status)
	}
	if len(repo.statusEntries) != 0 || len(events.events) != 0 {
		t.Fatal("no-op must not write history or emit events")
	}
}

func TestChangeStatusRejectsBackwardMoves(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusInEngineering)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	_, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if repo.order.Status != enums.OrderStatusInEngineering {
		t.Fatal("status must not change")
	}
}

func TestChangeStatusRejectsNonexistentEdge(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusDone)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestChangeStatusRejectsWrongRole(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestChangeStatusElevatedRoleBypassesRoleList(t *testing.T) {
	actor := testActor(enums.ActorRoleAdmin)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering)
	if err != nil {
		t.Fatalf("admin change status: %v", err)
	}
	if updated.Status != enums.OrderStatusReadyForEngineering {
		t.Fatalf("expected ready_for_engineering, got %s", updated.Status)
	}
}

func TestChangeStatusBlockedByGates(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	order := readyOrder(actor.TenantID, enums.OrderStatusDraft)
	order.ChecklistState = types.ChecklistState{}
	order.ProductName = nil
	repo := &stubOrderRepo{order: order}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	_, err := wf.ChangeStatus(context.Background(), actor, order.ID, enums.OrderStatusReadyForEngineering)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeGateBlocked {
		t.Fatalf("expected gate blocked, got %v", err)
	}
	violations, ok := typed.Details().([]GateViolation)
	if !ok || len(violations) == 0 {
		t.Fatalf("expected violations in details, got %v", typed.Details())
	}
	if repo.order.Status != enums.OrderStatusDraft || len(events.events) != 0 {
		t.Fatal("blocked transition must not mutate state or emit events")
	}
}

func TestChangeStatusRejectsViewer(t *testing.T) {
	actor := testActor(enums.ActorRoleViewer)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.ChangeStatus(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSendBackRequiresReason(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusInEngineering)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.SendBack(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering, "   ", nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendBackRecordsReasonCommentAndEvent(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusInEngineering)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	note := "see the updated drawing"
	updated, err := wf.SendBack(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering, "missing information", &note)
	if err != nil {
		t.Fatalf("send back: %v", err)
	}
	if updated.Status != enums.OrderStatusReadyForEngineering {
		t.Fatalf("expected ready_for_engineering, got %s", updated.Status)
	}
	if len(repo.comments) != 1 {
		t.Fatalf("expected reason comment, got %d comments", len(repo.comments))
	}
	if repo.comments[0].AuthorID != actor.UserID {
		t.Fatal("reason comment must carry the actor as author")
	}
	if repo.comments[0].Message != "Sent back: missing information - see the updated drawing" {
		t.Fatalf("unexpected comment message %q", repo.comments[0].Message)
	}
	if len(repo.statusEntries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(repo.statusEntries))
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderSentBack {
		t.Fatalf("expected sent-back event, got %v", events.events)
	}
	payload := events.events[0].Data.(SentBackEvent)
	if payload.Reason != "missing information" {
		t.Fatalf("unexpected reason %q", payload.Reason)
	}
}

func TestSendBackRejectsForwardPair(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.SendBack(context.Background(), actor, repo.order.ID, enums.OrderStatusReadyForEngineering, "because", nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTakeAssignsUnassignedOrder(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusReadyForEngineering)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.Take(context.Background(), actor, repo.order.ID)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if updated.AssignedEngineerID == nil || *updated.AssignedEngineerID != actor.UserID {
		t.Fatal("expected the actor to be assigned")
	}
	if updated.Status != enums.OrderStatusReadyForEngineering {
		t.Fatal("take must not change the status")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderAssigned {
		t.Fatalf("expected assigned event, got %v", events.events)
	}
}

func TestTakeConflictsWhenAlreadyAssigned(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	other := uuid.New()
	order := readyOrder(actor.TenantID, enums.OrderStatusReadyForEngineering)
	order.AssignedEngineerID = &other
	repo := &stubOrderRepo{order: order}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.Take(context.Background(), actor, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestTakeRejectsWrongStatusAndRole(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.Take(context.Background(), actor, repo.order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	sales := testActor(enums.ActorRoleSales)
	_, err = wf.Take(context.Background(), sales, repo.order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReturnToQueueResetsStatusWhenWorkStarted(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	order := readyOrder(actor.TenantID, enums.OrderStatusInEngineering)
	order.AssignedEngineerID = &actor.UserID
	name := actor.DisplayName
	order.AssignedEngineerName = &name
	repo := &stubOrderRepo{order: order}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.ReturnToQueue(context.Background(), actor, order.ID)
	if err != nil {
		t.Fatalf("return to queue: %v", err)
	}
	if updated.AssignedEngineerID != nil {
		t.Fatal("expected assignment cleared")
	}
	if updated.Status != enums.OrderStatusReadyForEngineering {
		t.Fatalf("expected status reset, got %s", updated.Status)
	}
	if len(repo.statusEntries) != 1 {
		t.Fatalf("expected history entry for the reset, got %d", len(repo.statusEntries))
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderReturnedToQueue {
		t.Fatalf("expected returned-to-queue event, got %v", events.events)
	}
}

func TestReturnToQueueOnlyAssignedEngineer(t *testing.T) {
	owner := uuid.New()
	actor := testActor(enums.ActorRoleEngineering)
	order := readyOrder(actor.TenantID, enums.OrderStatusInEngineering)
	order.AssignedEngineerID = &owner
	repo := &stubOrderRepo{order: order}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.ReturnToQueue(context.Background(), actor, order.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReturnToQueueWithoutStatusChangeKeepsHistoryClean(t *testing.T) {
	actor := testActor(enums.ActorRoleEngineering)
	order := readyOrder(actor.TenantID, enums.OrderStatusReadyForEngineering)
	order.AssignedEngineerID = &actor.UserID
	repo := &stubOrderRepo{order: order}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	updated, err := wf.ReturnToQueue(context.Background(), actor, order.ID)
	if err != nil {
		t.Fatalf("return to queue: %v", err)
	}
	if updated.AssignedEngineerID != nil {
		t.Fatal("expected assignment cleared")
	}
	if len(repo.statusEntries) != 0 {
		t.Fatal("no status change means no history entry")
	}
}

func TestAssignEngineerValidation(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusDraft)}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.AssignEngineer(context.Background(), actor, repo.order.ID, uuid.Nil, "Jo Engineer")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for nil assignee, got %v", err)
	}

	_, err = wf.AssignEngineer(context.Background(), actor, repo.order.ID, uuid.New(), "  ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	engineering := testActor(enums.ActorRoleEngineering)
	_, err = wf.AssignEngineer(context.Background(), engineering, repo.order.ID, uuid.New(), "Jo Engineer")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for engineering actor, got %v", err)
	}
}

func TestAssignAndClearManager(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{order: readyOrder(actor.TenantID, enums.OrderStatusReadyForProduction)}
	events := &recordingOutbox{}
	wf := newTestWorkflow(t, repo, events)

	assigneeID := uuid.New()
	updated, err := wf.AssignManager(context.Background(), actor, repo.order.ID, assigneeID, "Pat Manager")
	if err != nil {
		t.Fatalf("assign manager: %v", err)
	}
	if updated.AssignedManagerID == nil || *updated.AssignedManagerID != assigneeID {
		t.Fatal("expected manager assigned")
	}
	if len(events.events) != 1 || events.events[0].EventType != enums.EventOrderAssigned {
		t.Fatalf("expected assigned event, got %v", events.events)
	}
	payload := events.events[0].Data.(AssignedEvent)
	if payload.Role != "manager" {
		t.Fatalf("expected manager role in payload, got %q", payload.Role)
	}

	cleared, err := wf.ClearManager(context.Background(), actor, repo.order.ID)
	if err != nil {
		t.Fatalf("clear manager: %v", err)
	}
	if cleared.AssignedManagerID != nil || cleared.ManagerAssignedAt != nil {
		t.Fatal("expected manager assignment cleared")
	}
}

func TestWorkflowOrderNotFound(t *testing.T) {
	actor := testActor(enums.ActorRoleSales)
	repo := &stubOrderRepo{}
	wf := newTestWorkflow(t, repo, &recordingOutbox{})

	_, err := wf.ChangeStatus(context.Background(), actor, uuid.New(), enums.OrderStatusReadyForEngineering)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
