package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox/idempotency"
)

const workflowNotificationConsumer = "workflow-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches domain events and turns workflow transitions into
// in-app notifications.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a workflow notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
	})

	if !handledEvent(eventType) {
		c.logg.Info(logCtx, "skipping unhandled event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, workflowNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	notification, err := c.buildNotification(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, workflowNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	if notification == nil {
		c.logg.Info(logCtx, "event produced no notification")
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "notification insert failed", err)
		_ = c.idempotency.Delete(ctx, workflowNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithTenantID(logCtx, notification.TenantID.String()), "notification created")
	return processResult{ack: true}
}

func handledEvent(eventType enums.OutboxEventType) bool {
	switch eventType {
	case enums.EventOrderStatusChanged,
		enums.EventOrderSentBack,
		enums.EventOrderAssigned,
		enums.EventOrderReturnedToQueue,
		enums.EventExternalJobStatusChanged:
		return true
	default:
		return false
	}
}

func (c *Consumer) buildNotification(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventOrderStatusChanged:
		var payload orderStatusChangedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.TenantID == uuid.Nil {
			return nil, fmt.Errorf("tenant id missing")
		}
		return &models.Notification{
			TenantID: payload.TenantID,
			Type:     enums.NotificationTypeOrderStatusChanged,
			Title:    "Order moved",
			Message: fmt.Sprintf("Order %s moved from %s to %s by %s.",
				payload.OrderNumber, payload.From, payload.To, displayName(payload.ChangedBy)),
			Link: orderLink(payload.OrderID),
		}, nil
	case enums.EventOrderSentBack:
		var payload orderSentBackPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.TenantID == uuid.Nil {
			return nil, fmt.Errorf("tenant id missing")
		}
		message := fmt.Sprintf("Order %s was sent back from %s to %s.",
			payload.OrderNumber, payload.From, payload.To)
		if reason := strings.TrimSpace(payload.Reason); reason != "" {
			message = fmt.Sprintf("%s Reason: %s", message, reason)
		}
		return &models.Notification{
			TenantID: payload.TenantID,
			Type:     enums.NotificationTypeOrderSentBack,
			Title:    "Order sent back",
			Message:  message,
			Link:     orderLink(payload.OrderID),
		}, nil
	case enums.EventOrderAssigned:
		var payload orderAssignedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.TenantID == uuid.Nil {
			return nil, fmt.Errorf("tenant id missing")
		}
		return &models.Notification{
			TenantID: payload.TenantID,
			Type:     enums.NotificationTypeOrderAssigned,
			Title:    "Order assigned",
			Message: fmt.Sprintf("Order %s was assigned to %s %s.",
				payload.OrderNumber, payload.Role, displayName(payload.AssigneeName)),
			Link: orderLink(payload.OrderID),
		}, nil
	case enums.EventOrderReturnedToQueue:
		var payload orderReturnedToQueuePayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.TenantID == uuid.Nil {
			return nil, fmt.Errorf("tenant id missing")
		}
		return &models.Notification{
			TenantID: payload.TenantID,
			Type:     enums.NotificationTypeOrderReturnedToQueue,
			Title:    "Order back in queue",
			Message:  fmt.Sprintf("Order %s was returned to the engineering queue.", payload.OrderNumber),
			Link:     orderLink(payload.OrderID),
		}, nil
	case enums.EventExternalJobStatusChanged:
		var payload externalJobStatusChangedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		if payload.TenantID == uuid.Nil {
			return nil, fmt.Errorf("tenant id missing")
		}
		return &models.Notification{
			TenantID: payload.TenantID,
			Type:     enums.NotificationTypeExternalJobStatusChanged,
			Title:    "Partner job updated",
			Message: fmt.Sprintf("Job at %s moved from %s to %s.",
				payload.PartnerName, payload.From, payload.To),
			Link: orderLink(payload.OrderID),
		}, nil
	default:
		return nil, nil
	}
}

func orderLink(orderID uuid.UUID) *string {
	link := fmt.Sprintf("/orders/%s", orderID)
	return &link
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "someone"
	}
	return name
}

type orderStatusChangedPayload struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedBy   string            `json:"changed_by"`
	ChangedRole string            `json:"changed_role"`
}

type orderSentBackPayload struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	TenantID    uuid.UUID         `json:"tenant_id"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	Reason      string            `json:"reason"`
	ChangedBy   string            `json:"changed_by"`
}

type orderAssignedPayload struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Role         string    `json:"role"`
	AssigneeID   uuid.UUID `json:"assignee_id"`
	AssigneeName string    `json:"assignee_name"`
}

type orderReturnedToQueuePayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TenantID    uuid.UUID `json:"tenant_id"`
	EngineerID  uuid.UUID `json:"engineer_id"`
}

type externalJobStatusChangedPayload struct {
	JobID       uuid.UUID               `json:"job_id"`
	OrderID     uuid.UUID               `json:"order_id"`
	TenantID    uuid.UUID               `json:"tenant_id"`
	PartnerName string                  `json:"partner_name"`
	From        enums.ExternalJobStatus `json:"from"`
	To          enums.ExternalJobStatus `json:"to"`
	ChangedBy   string                  `json:"changed_by"`
}
