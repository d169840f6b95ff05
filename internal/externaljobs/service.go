package externaljobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/workflowrules"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/outbox"
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

// orderFinder verifies the parent order exists in the actor's tenant.
type orderFinder interface {
	FindByID(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
}

// jobTransitions maps each job status to the statuses reachable from it.
var jobTransitions = map[enums.ExternalJobStatus][]enums.ExternalJobStatus{
	enums.ExternalJobStatusRequested:  {enums.ExternalJobStatusOrdered, enums.ExternalJobStatusCancelled},
	enums.ExternalJobStatusOrdered:    {enums.ExternalJobStatusInProgress, enums.ExternalJobStatusCancelled},
	enums.ExternalJobStatusInProgress: {enums.ExternalJobStatusDelivered, enums.ExternalJobStatusApproved, enums.ExternalJobStatusCancelled},
	enums.ExternalJobStatusDelivered:  {enums.ExternalJobStatusApproved},
}

// JobTransitionExists reports whether the pair is a legal job move.
func JobTransitionExists(from, to enums.ExternalJobStatus) bool {
	for _, candidate := range jobTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CreateJobInput carries the fields accepted when subcontracting work.
type CreateJobInput struct {
	PartnerID    *string
	PartnerName  string
	PartnerEmail *string
	RequestMode  enums.ExternalJobRequestMode
	Quantity     *int
	DueDate      *time.Time
	RequestNote  *string
}

// UpdateJobInput is a partial patch; nil fields stay untouched.
type UpdateJobInput struct {
	PartnerName         *string
	PartnerEmail        *string
	ExternalOrderNumber *string
	Quantity            *int
	DueDate             *time.Time
	RequestNote         *string
}

// ReceiptInput records delivery details when a job reaches delivered.
type ReceiptInput struct {
	DeliveryNoteNumber *string
}

// AttachmentInput carries metadata for a stored file reference.
type AttachmentInput struct {
	Name      string
	URL       string
	Category  enums.AttachmentCategory
	SizeBytes int64
	MimeType  string
}

// StatusChangedEvent is emitted on every successful job transition.
type StatusChangedEvent struct {
	JobID       uuid.UUID               `json:"job_id"`
	OrderID     uuid.UUID               `json:"order_id"`
	TenantID    uuid.UUID               `json:"tenant_id"`
	PartnerName string                  `json:"partner_name"`
	From        enums.ExternalJobStatus `json:"from"`
	To          enums.ExternalJobStatus `json:"to"`
	ChangedBy   string                  `json:"changed_by"`
	ChangedRole string                  `json:"changed_role"`
}

// Service defines external job operations.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CreateJobInput) (*models.ExternalJob, error)
	Get(ctx context.Context, actor auth.Actor, jobID uuid.UUID) (*models.ExternalJob, error)
	ListByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.ExternalJob, error)
	Update(ctx context.Context, actor auth.Actor, jobID uuid.UUID, input UpdateJobInput) (*models.ExternalJob, error)
	ChangeStatus(ctx context.Context, actor auth.Actor, jobID uuid.UUID, target enums.ExternalJobStatus, receipt *ReceiptInput) (*models.ExternalJob, error)
	RecordPartnerResponse(ctx context.Context, actor auth.Actor, jobID uuid.UUID, note string, externalOrderNumber *string) (*models.ExternalJob, error)
	Delete(ctx context.Context, actor auth.Actor, jobID uuid.UUID) error

	AddAttachment(ctx context.Context, actor auth.Actor, jobID uuid.UUID, input AttachmentInput) (*models.ExternalJobAttachment, error)
	ListAttachments(ctx context.Context, actor auth.Actor, jobID uuid.UUID) ([]models.ExternalJobAttachment, error)
	DeleteAttachment(ctx context.Context, actor auth.Actor, jobID, attachmentID uuid.UUID) error
	History(ctx context.Context, actor auth.Actor, jobID uuid.UUID) ([]models.ExternalJobStatusEntry, error)
}

type service struct {
	repo   Repository
	orders orderFinder
	rules  rulesProvider
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an external job service with the required dependencies.
func NewService(repo Repository, orders orderFinder, rules rulesProvider, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("external jobs repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order finder required")
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
	return &service{repo: repo, orders: orders, rules: rules, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input CreateJobInput) (*models.ExternalJob, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.PartnerName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner name required")
	}
	mode := input.RequestMode
	if mode == "" {
		mode = enums.ExternalJobRequestModeManual
	}
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid request mode %q", mode))
	}
	if mode == enums.ExternalJobRequestModePartnerPortal && (input.PartnerEmail == nil || strings.TrimSpace(*input.PartnerEmail) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner email required for portal requests")
	}

	if _, err := s.orders.FindByID(ctx, actor.TenantID, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	now := time.Now().UTC()
	job := &models.ExternalJob{
		OrderID:      orderID,
		TenantID:     actor.TenantID,
		PartnerID:    input.PartnerID,
		PartnerName:  strings.TrimSpace(input.PartnerName),
		PartnerEmail: input.PartnerEmail,
		RequestMode:  mode,
		Status:       enums.ExternalJobStatusRequested,
		Quantity:     input.Quantity,
		DueDate:      input.DueDate,
		RequestNote:  input.RequestNote,
	}
	if mode == enums.ExternalJobRequestModePartnerPortal {
		job.PartnerRequestedAt = &now
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, job); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create external job")
		}
		entry := &models.ExternalJobStatusEntry{
			JobID:         job.ID,
			TenantID:      actor.TenantID,
			Status:        enums.ExternalJobStatusRequested,
			ChangedByName: actor.DisplayName,
			ChangedByRole: actor.Role.String(),
			ChangedAt:     now,
		}
		if err := repo.CreateStatusEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append job history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, jobID uuid.UUID) (*models.ExternalJob, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	job, err := s.repo.FindDetail(ctx, actor.TenantID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "external job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load external job")
	}
	return job, nil
}

func (s *service) ListByOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.ExternalJob, error) {
	if _, err := s.orders.FindByID(ctx, actor.TenantID, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	jobs, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list external jobs")
	}
	return jobs, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, jobID uuid.UUID, input UpdateJobInput) (*models.ExternalJob, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	job, err := s.findJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "terminal jobs cannot be edited")
	}

	updates := map[string]any{}
	if input.PartnerName != nil {
		name := strings.TrimSpace(*input.PartnerName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "partner name cannot be empty")
		}
		updates["partner_name"] = name
	}
	if input.PartnerEmail != nil {
		updates["partner_email"] = *input.PartnerEmail
	}
	if input.ExternalOrderNumber != nil {
		updates["external_order_number"] = *input.ExternalOrderNumber
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.DueDate != nil {
		updates["due_date"] = *input.DueDate
	}
	if input.RequestNote != nil {
		updates["request_note"] = *input.RequestNote
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if err := s.repo.Update(ctx, job.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update external job")
	}
	return s.repo.FindByID(ctx, actor.TenantID, job.ID)
}

// ChangeStatus moves a job along its lifecycle. A move into a status with a
// configured attachment minimum is blocked until enough files exist.
func (s *service) ChangeStatus(ctx context.Context, actor auth.Actor, jobID uuid.UUID, target enums.ExternalJobStatus, receipt *ReceiptInput) (*models.ExternalJob, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid job status %q", target))
	}

	var updated *models.ExternalJob
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := repo.FindByID(ctx, actor.TenantID, jobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "external job not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load external job")
		}
		if job.Status == target {
			updated = job
			return nil
		}
		if !JobTransitionExists(job.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot move job from %s to %s", job.Status, target))
		}

		rules, err := s.rules.Get(ctx, actor.TenantID)
		if err != nil {
			return err
		}
		if min := rules.MinAttachmentsForJobStatus(target); min > 0 {
			count, err := repo.CountAttachments(ctx, job.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count job attachments")
			}
			if count < int64(min) {
				return pkgerrors.New(pkgerrors.CodeGateBlocked,
					fmt.Sprintf("status %s requires at least %d attachment(s), job has %d", target, min, count))
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": target}
		if target == enums.ExternalJobStatusDelivered {
			updates["received_at"] = now
			updates["received_by"] = actor.DisplayName
			if receipt != nil && receipt.DeliveryNoteNumber != nil {
				updates["delivery_note_number"] = *receipt.DeliveryNoteNumber
			}
		}
		if err := repo.Update(ctx, job.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update job status")
		}
		entry := &models.ExternalJobStatusEntry{
			JobID:         job.ID,
			TenantID:      actor.TenantID,
			Status:        target,
			ChangedByName: actor.DisplayName,
			ChangedByRole: actor.Role.String(),
			ChangedAt:     now,
		}
		if err := repo.CreateStatusEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append job history")
		}
		updated, err = repo.FindByID(ctx, actor.TenantID, job.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload job")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventExternalJobStatusChanged,
			AggregateType: enums.AggregateExternalJob,
			AggregateID:   job.ID,
			TenantID:      actor.TenantID,
			Actor: &outbox.ActorRef{
				UserID:   actor.UserID,
				TenantID: actor.TenantID,
				Role:     actor.Role.String(),
				Name:     actor.DisplayName,
			},
			Data: StatusChangedEvent{
				JobID:       job.ID,
				OrderID:     job.OrderID,
				TenantID:    actor.TenantID,
				PartnerName: job.PartnerName,
				From:        job.Status,
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

// RecordPartnerResponse stores the partner's asynchronous reply from the
// portal flow.
func (s *service) RecordPartnerResponse(ctx context.Context, actor auth.Actor, jobID uuid.UUID, note string, externalOrderNumber *string) (*models.ExternalJob, error) {
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	job, err := s.findJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	if job.RequestMode != enums.ExternalJobRequestModePartnerPortal {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "job was not requested through the partner portal")
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"partner_responded_at": now,
		"response_note":        strings.TrimSpace(note),
	}
	if externalOrderNumber != nil {
		updates["external_order_number"] = *externalOrderNumber
	}
	if err := s.repo.Update(ctx, job.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record partner response")
	}
	return s.repo.FindByID(ctx, actor.TenantID, job.ID)
}

// Delete removes the job and its children explicitly so the cascade is
// observable without a live database.
func (s *service) Delete(ctx context.Context, actor auth.Actor, jobID uuid.UUID) error {
	if err := requireWriter(actor); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		job, err := repo.FindByID(ctx, actor.TenantID, jobID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "external job not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load external job")
		}
		var cascadeErr error
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteAttachmentsByJob(ctx, job.ID))
		cascadeErr = multierr.Append(cascadeErr, repo.DeleteStatusEntriesByJob(ctx, job.ID))
		if cascadeErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cascadeErr, "delete job children")
		}
		if err := repo.DeleteJob(ctx, job.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete external job")
		}
		return nil
	})
}

func (s *service) AddAttachment(ctx context.Context, actor auth.Actor, jobID uuid.UUID, input AttachmentInput) (*models.ExternalJobAttachment, error) {
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
	job, err := s.findJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	attachment := &models.ExternalJobAttachment{
		JobID:        job.ID,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job attachment")
	}
	return attachment, nil
}

func (s *service) ListAttachments(ctx context.Context, actor auth.Actor, jobID uuid.UUID) ([]models.ExternalJobAttachment, error) {
	job, err := s.findJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	attachments, err := s.repo.ListAttachments(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list job attachments")
	}
	return attachments, nil
}

func (s *service) DeleteAttachment(ctx context.Context, actor auth.Actor, jobID, attachmentID uuid.UUID) error {
	if err := requireWriter(actor); err != nil {
		return err
	}
	attachment, err := s.repo.FindAttachment(ctx, actor.TenantID, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attachment")
	}
	if attachment.JobID != jobID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "attachment not found")
	}
	if err := s.repo.DeleteAttachment(ctx, attachment.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job attachment")
	}
	return nil
}

func (s *service) History(ctx context.Context, actor auth.Actor, jobID uuid.UUID) ([]models.ExternalJobStatusEntry, error) {
	job, err := s.findJob(ctx, actor, jobID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListStatusEntries(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list job history")
	}
	return entries, nil
}

func (s *service) findJob(ctx context.Context, actor auth.Actor, jobID uuid.UUID) (*models.ExternalJob, error) {
	if jobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	job, err := s.repo.FindByID(ctx, actor.TenantID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "external job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load external job")
	}
	return job, nil
}

func requireWriter(actor auth.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant context missing")
	}
	if actor.Role == enums.ActorRoleViewer {
		return pkgerrors.New(pkgerrors.CodeForbidden, "viewers cannot modify external jobs")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("unknown role %q", actor.Role))
	}
	return nil
}
