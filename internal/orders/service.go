package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	dbpkg "github.com/angelmondragon/prodflow-backend/pkg/db"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rulesProvider interface {
	Get(ctx context.Context, tenantID uuid.UUID) (workflowrules.RuleSet, error)
}

// Service defines order CRUD plus child-entity operations.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor auth.Actor, params pagination.Params, filters Filters) (*OrderList, error)
	Update(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error)
	Delete(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error
	History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderStatusEntry, error)

	AddComment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, message string) (*models.OrderComment, error)
	ListComments(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderComment, error)
	DeleteComment(ctx context.Context, actor auth.Actor, orderID, commentID uuid.UUID) error

	AddAttachment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input AttachmentInput) (*models.OrderAttachment, error)
	ListAttachments(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderAttachment, error)
	DeleteAttachment(ctx context.Context, actor auth.Actor, orderID, attachmentID uuid.UUID) error

	SetChecklistItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, itemID string, checked bool) (*models.Order, error)
}

type service struct {
	repo   Repository
	rules  rulesProvider
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, rules rulesProvider, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if rules == nil {
		return nil, fmt.Errorf("workflow rules provider required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, rules: rules, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	orderNumber := strings.TrimSpace(input.OrderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if strings.TrimSpace(input.Customer) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer required")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.OrderPriorityNormal
	}
	if !priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", priority))
	}
	source := input.Source
	if source == "" {
		source = enums.OrderSourceManual
	}
	if !source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid source %q", source))
	}

	order := &models.Order{
		TenantID:          actor.TenantID,
		OrderNumber:       orderNumber,
		Customer:          strings.TrimSpace(input.Customer),
		ProductName:       input.ProductName,
		Quantity:          input.Quantity,
		Priority:          priority,
		Status:            enums.OrderStatusDraft,
		Source:            source,
		DueDate:           input.DueDate,
		HierarchyTags:     input.HierarchyTags,
		ChecklistState:    types.ChecklistState{},
		AccountingID:      input.AccountingID,
		AccountingPayload: input.AccountingPayload,
	}

	// Order and first comment commit atomically; a failed comment insert
	// rolls the order back rather than leaving a partially created record.
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_orders_tenant_number") {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order number %q already exists", orderNumber))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if input.InitialComment != nil && strings.TrimSpace(*input.InitialComment) != "" {
			comment := &models.OrderComment{
				OrderID:    order.ID,
				TenantID:   actor.TenantID,
				AuthorID:   actor.UserID,
				AuthorName: actor.DisplayName,
				AuthorRole: actor.Role.String(),
				Message:    strings.TrimSpace(*input.InitialComment),
			}
			if _, err := repo.CreateComment(ctx, comment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create initial comment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindDetail(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params pagination.Params, filters Filters) (*OrderList, error) {
	list, err := s.repo.List(ctx, actor.TenantID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input UpdateOrderInput) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	updates := map[string]any{}
	if input.Customer != nil {
		customer := strings.TrimSpace(*input.Customer)
		if customer == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer cannot be empty")
		}
		updates["customer"] = customer
	}
	if input.ProductName != nil {
		updates["product_name"] = *input.ProductName
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid priority %q", *input.Priority))
		}
		updates["priority"] = *input.Priority
	}
	if input.ClearDueDate {
		updates["due_date"] = nil
	} else if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.HierarchyTags != nil {
		updates["hierarchy_tags"] = input.HierarchyTags
	}
	if input.ProductionMinutes != nil {
		if *input.ProductionMinutes < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "production minutes cannot be negative")
		}
		updates["production_minutes"] = *input.ProductionMinutes
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, actor.TenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Human edit downgrades accounting provenance so the next sync
		// stops overwriting the change.
		if next := SourceAfterHumanEdit(order.Source); next != order.Source {
			updates["source"] = next
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the order aggregate. Children are deleted explicitly so the
// cascade is observable in tests without a live database; errors across the
// child deletes are collected before aborting the transaction.
func (s *service) Delete(ctx context.Context, actor auth.Actor, orderID uuid.UUID) error {
	if err := requireWriter(actor); err != nil {
		return err
	}
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, actor.TenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		var cascadeErr error
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteExternalJobsByOrder(ctx, order.ID))
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteAttachmentsByOrder(ctx, order.ID))
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteCommentsByOrder(ctx, order.ID))
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteStatusEntriesByOrder(ctx, order.ID))
		if cascadeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cascadeErr, "delete order children")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderStatusEntry, error) {
	if _, err := s.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListStatusEntries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status history")
	}
	return entries, nil
}

func (s *service) AddComment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, message string) (*models.OrderComment, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment message required")
	}
	order, err := s.findOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	comment := &models.OrderComment{
		OrderID:    order.ID,
		TenantID:   actor.TenantID,
		AuthorID:   actor.UserID,
		AuthorName: actor.DisplayName,
		AuthorRole: actor.Role.String(),
		Message:    message,
	}
	if _, err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}
	return comment, nil
}

func (s *service) ListComments(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderComment, error) {
	order, err := s.findOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	return comments, nil
}

// DeleteComment removes a comment. Only the author or an elevated role may
// delete.
func (s *service) DeleteComment(ctx context.Context, actor auth.Actor, orderID, commentID uuid.UUID) error {
	if commentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "comment id required")
	}
	comment, err := s.repo.FindComment(ctx, actor.TenantID, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	if comment.OrderID != orderID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
	}
	if comment.AuthorID != actor.UserID && !actor.IsElevated() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author or an admin may delete a comment")
	}
	if err := s.repo.DeleteComment(ctx, comment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete comment")
	}
	return nil
}

func (s *service) AddAttachment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input AttachmentInput) (*models.OrderAttachment, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attachment name required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "attachment url required")
	}
	category := input.Category
	if category == "" {
		category = enums.AttachmentCategoryOther
	}
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid attachment category %q", category))
	}
	order, err := s.findOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	attachment := &models.OrderAttachment{
		OrderID:      order.ID,
		TenantID:     actor.TenantID,
		Name:         strings.TrimSpace(input.Name),
		URL:          strings.TrimSpace(input.URL),
		Category:     category,
		SizeBytes:    input.SizeBytes,
		MimeType:     input.MimeType,
		UploaderName: actor.DisplayName,
		UploaderRole: actor.Role.String(),
	}
	if _, err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create attachment")
	}
	return attachment, nil
}

func (s *service) ListAttachments(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.OrderAttachment, error) {
	order, err := s.findOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list attachments")
	}
	return attachments, nil
}

func (s *service) DeleteAttachment(ctx context.Context, actor auth.Actor, orderID, attachmentID uuid.UUID) error {
	if err := requireWriter(actor); err != nil {
		return err
	}
	if attachmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "attachment id required")
	}
	attachment, err := s.repo.FindAttachment(ctx, actor.TenantID, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attachment")
	}
	if attachment.OrderID != orderID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
	}
	if err := s.repo.DeleteAttachment(ctx, attachment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete attachment")
	}
	return nil
}

// SetChecklistItem toggles one checklist item on the order. The item must be
// defined in the tenant's rule set.
func (s *service) SetChecklistItem(ctx context.Context, actor auth.Actor, orderID uuid.UUID, itemID string, checked bool) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checklist item id required")
	}
	rules, err := s.rules.Get(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	known := false
	for _, item := range rules.ChecklistItems {
		if item.ID == itemID {
			known = true
			break
		}
	}
	if !known {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown checklist item %q", itemID))
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, actor.TenantID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		state := order.ChecklistState
		if state == nil {
			state = types.ChecklistState{}
		}
		state[itemID] = checked
		if err := repo.Update(ctx, order.ID, map[string]any{"checklist_state": state}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update checklist")
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) findOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// requireWriter rejects mutations from actors without a writing role.
func requireWriter(actor auth.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	if actor.Role == enums.ActorRoleViewer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "viewers cannot modify orders")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown role %q", actor.Role))
	}
	return nil
}
