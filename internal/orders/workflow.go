package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
)

// Workflow defines the status and assignment mutations on orders.
type Workflow interface {
	ChangeStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	SendBack(ctx context.Context, actor auth.Actor, orderID uuid.UUID, target enums.OrderStatus, reason string, note *string) (*models.Order, error)
	Take(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	ReturnToQueue(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	AssignEngineer(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName string) (*models.Order, error)
	ClearEngineer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	AssignManager(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName string) (*models.Order, error)
	ClearManager(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
}

type workflow struct {
	repo   Repository
	rules  rulesProvider
	tx     txRunner
	outbox outboxPublisher
}

// NewWorkflow builds the workflow service.
func NewWorkflow(repo Repository, rules rulesProvider, tx txRunner, outbox outboxPublisher) (Workflow, error) {
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
	return &workflow{repo: repo, rules: rules, tx: tx, outbox: outbox}, nil
}

// ChangeStatus performs a forward transition. Backward moves must go through
// SendBack so a reason is always recorded.
func (w *workflow) ChangeStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", target))
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status == target {
			updated = order
			return nil
		}
		if IsSendBack(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "backward moves require a send-back with a reason")
		}
		if !TransitionExists(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move from %s to %s", order.Status, target))
		}
		if !CanTransition(order.Status, target, actor.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("role %s may not move an order from %s to %s", actor.Role, order.Status, target))
		}
		if err := w.checkGates(ctx, repo, order, target); err != nil {
			return err
		}

		from := order.Status
		updated, err = w.applyStatusChange(ctx, repo, actor, order, target)
		if err != nil {
			return err
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      actor.TenantID,
			Actor:         actorRef(actor),
			Data: StatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TenantID:    actor.TenantID,
				From:        from,
				To:          target,
				ChangedBy:   actor.DisplayName,
				ChangedRole: actor.Role.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SendBack regresses an order with a mandatory reason. The reason comment and
// the transition commit in the same transaction.
func (w *workflow) SendBack(ctx context.Context, actor auth.Actor, orderID uuid.UUID, target enums.OrderStatus, reason string, note *string) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", target))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "send-back reason required")
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if !IsSendBack(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot send back from %s to %s", order.Status, target))
		}
		if !CanSendBack(order.Status, target, actor.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden,
				fmt.Sprintf("role %s may not send an order back from %s to %s", actor.Role, order.Status, target))
		}

		message := "Sent back: " + reason
		if note != nil && strings.TrimSpace(*note) != "" {
			message += " - " + strings.TrimSpace(*note)
		}
		comment := &models.OrderComment{
			OrderID:    order.ID,
			TenantID:   actor.TenantID,
			AuthorID:   actor.UserID,
			AuthorName: actor.DisplayName,
			AuthorRole: actor.Role.String(),
			Message:    message,
		}
		if _, err := repo.CreateComment(ctx, comment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record send-back reason")
		}

		if err := w.checkGates(ctx, repo, order, target); err != nil {
			return err
		}

		from := order.Status
		updated, err = w.applyStatusChange(ctx, repo, actor, order, target)
		if err != nil {
			return err
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderSentBack,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      actor.TenantID,
			Actor:         actorRef(actor),
			Data: SentBackEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TenantID:    actor.TenantID,
				From:        from,
				To:          target,
				Reason:      reason,
				ChangedBy:   actor.DisplayName,
				ChangedRole: actor.Role.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Take self-assigns an engineering actor to an unassigned order waiting in
// ready_for_engineering.
func (w *workflow) Take(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleEngineering && !actor.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only engineering may take an order")
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusReadyForEngineering {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not waiting for engineering")
		}
		if order.AssignedEngineerID != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already has an assigned engineer")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"assigned_engineer_id":   actor.UserID,
			"assigned_engineer_name": actor.DisplayName,
			"engineer_assigned_at":   now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign engineer")
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      actor.TenantID,
			Actor:         actorRef(actor),
			Data: AssignedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				TenantID:     actor.TenantID,
				Role:         "engineer",
				AssigneeID:   actor.UserID,
				AssigneeName: actor.DisplayName,
				AssignedBy:   actor.DisplayName,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReturnToQueue lets the assigned engineer step off the order. If work had
// started, the status resets to ready_for_engineering with a history entry;
// returning an order already in that status only clears the assignment.
func (w *workflow) ReturnToQueue(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		if order.AssignedEngineerID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no assigned engineer")
		}
		if *order.AssignedEngineerID != actor.UserID && !actor.IsElevated() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned engineer may return an order to the queue")
		}

		engineerID := *order.AssignedEngineerID
		updates := map[string]any{
			"assigned_engineer_id":   nil,
			"assigned_engineer_name": nil,
			"engineer_assigned_at":   nil,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear engineer assignment")
		}

		if order.Status == enums.OrderStatusInEngineering || order.Status == enums.OrderStatusEngineeringBlocked {
			if _, err := w.applyStatusChange(ctx, repo, actor, order, enums.OrderStatusReadyForEngineering); err != nil {
				return err
			}
		}

		updated, err = repo.FindByID(ctx, actor.TenantID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturnedToQueue,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      actor.TenantID,
			Actor:         actorRef(actor),
			Data: ReturnedToQueueEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TenantID:    actor.TenantID,
				EngineerID:  engineerID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (w *workflow) AssignEngineer(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName string) (*models.Order, error) {
	return w.assign(ctx, actor, orderID, assigneeID, assigneeName, "engineer")
}

func (w *workflow) ClearEngineer(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	return w.clearAssignment(ctx, actor, orderID, "engineer")
}

func (w *workflow) AssignManager(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName string) (*models.Order, error) {
	return w.assign(ctx, actor, orderID, assigneeID, assigneeName, "manager")
}

func (w *workflow) ClearManager(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	return w.clearAssignment(ctx, actor, orderID, "manager")
}

// assign is the explicit sales/admin assignment path, independent of status.
func (w *workflow) assign(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName, role string) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleSales && !actor.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sales or an admin may assign")
	}
	if assigneeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee id required")
	}
	assigneeName = strings.TrimSpace(assigneeName)
	if assigneeName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignee name required")
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		updates := assignmentColumns(role, assigneeID, assigneeName, &now)
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign "+role)
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return w.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			TenantID:      actor.TenantID,
			Actor:         actorRef(actor),
			Data: AssignedEvent{
				OrderID:      order.ID,
				OrderNumber:  order.OrderNumber,
				TenantID:     actor.TenantID,
				Role:         role,
				AssigneeID:   assigneeID,
				AssigneeName: assigneeName,
				AssignedBy:   actor.DisplayName,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (w *workflow) clearAssignment(ctx context.Context, actor auth.Actor, orderID uuid.UUID, role string) (*models.Order, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleSales && !actor.IsElevated() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sales or an admin may clear an assignment")
	}

	var updated *models.Order
	err := w.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := w.repo.WithTx(tx)
		order, err := w.loadOrder(ctx, repo, actor, orderID)
		if err != nil {
			return err
		}
		updates := assignmentColumns(role, uuid.Nil, "", nil)
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear "+role)
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, order.ID)
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

func assignmentColumns(role string, assigneeID uuid.UUID, assigneeName string, at *time.Time) map[string]any {
	prefix := "assigned_engineer"
	stamp := "engineer_assigned_at"
	if role == "manager" {
		prefix = "assigned_manager"
		stamp = "manager_assigned_at"
	}
	if assigneeID == uuid.Nil {
		return map[string]any{
			prefix + "_id":   nil,
			prefix + "_name": nil,
			stamp:            nil,
		}
	}
	return map[string]any{
		prefix + "_id":   assigneeID,
		prefix + "_name": assigneeName,
		stamp:            at,
	}
}

// applyStatusChange writes the stamp columns and appends the history entry.
// One `now` covers both so statusChangedAt always equals the entry's changedAt.
func (w *workflow) applyStatusChange(ctx context.Context, repo Repository, actor auth.Actor, order *models.Order, target enums.OrderStatus) (*models.Order, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":              target,
		"status_changed_by":   actor.DisplayName,
		"status_changed_role": actor.Role.String(),
		"status_changed_at":   now,
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	entry := &models.OrderStatusEntry{
		OrderID:       order.ID,
		TenantID:      order.TenantID,
		Status:        target,
		ChangedByName: actor.DisplayName,
		ChangedByRole: actor.Role.String(),
		ChangedAt:     now,
	}
	if err := repo.CreateStatusEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	updated, err := repo.FindByID(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return updated, nil
}

// checkGates re-validates the tenant's transition requirements against
// persisted state. Requests never carry their own gate results.
func (w *workflow) checkGates(ctx context.Context, repo Repository, order *models.Order, target enums.OrderStatus) error {
	rules, err := w.rules.Get(ctx, order.TenantID)
	if err != nil {
		return err
	}
	attachments, err := repo.CountAttachments(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count attachments")
	}
	comments, err := repo.CountComments(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count comments")
	}
	violations := EvaluateGates(order, target, rules, attachments, comments)
	if len(violations) > 0 {
		return pkgerrors.New(pkgerrors.CodeGateBlocked,
			fmt.Sprintf("transition to %s blocked by %d unmet precondition(s)", target, len(violations))).
			WithDetails(violations)
	}
	return nil
}

func (w *workflow) loadOrder(ctx context.Context, repo Repository, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID:   actor.UserID,
		TenantID: actor.TenantID,
		Role:     actor.Role.String(),
		Name:     actor.DisplayName,
	}
}
