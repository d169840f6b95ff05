package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/api/validators"
	"github.com/angelmondragon/prodflow-backend/internal/externaljobs"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type externalJobCreateRequest struct {
	PartnerID    *string    `json:"partner_id"`
	PartnerName  string     `json:"partner_name" validate:"required"`
	PartnerEmail *string    `json:"partner_email"`
	RequestMode  string     `json:"request_mode"`
	Quantity     *int       `json:"quantity"`
	DueDate      *time.Time `json:"due_date"`
	RequestNote  *string    `json:"request_note"`
}

func (r externalJobCreateRequest) toInput() (externaljobs.CreateJobInput, error) {
	input := externaljobs.CreateJobInput{
		PartnerID:    r.PartnerID,
		PartnerName:  strings.TrimSpace(r.PartnerName),
		PartnerEmail: r.PartnerEmail,
		Quantity:     r.Quantity,
		DueDate:      r.DueDate,
		RequestNote:  r.RequestNote,
	}
	if r.RequestMode != "" {
		mode, err := enums.ParseExternalJobRequestMode(strings.TrimSpace(r.RequestMode))
		if err != nil {
			return externaljobs.CreateJobInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid request mode")
		}
		input.RequestMode = mode
	}
	return input, nil
}

// ExternalJobCreate opens a partner job under an order.
func ExternalJobCreate(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload externalJobCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Create(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, externalJobFromModel(job))
	}
}

// ExternalJobListByOrder returns all partner jobs for one order.
func ExternalJobListByOrder(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		orderID, err := validators.ParseUUIDParam(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobs, err := svc.ListByOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]externalJobResponse, 0, len(jobs))
		for i := range jobs {
			items = append(items, externalJobFromModel(&jobs[i]))
		}
		responses.WriteSuccess(w, items)
	}
}

// ExternalJobDetail returns one partner job.
func ExternalJobDetail(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Get(r.Context(), actor, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, externalJobFromModel(job))
	}
}

type externalJobUpdateRequest struct {
	PartnerName         *string    `json:"partner_name"`
	PartnerEmail        *string    `json:"partner_email"`
	ExternalOrderNumber *string    `json:"external_order_number"`
	Quantity            *int       `json:"quantity"`
	DueDate             *time.Time `json:"due_date"`
	RequestNote         *string    `json:"request_note"`
}

// ExternalJobUpdate applies a partial patch to a partner job.
func ExternalJobUpdate(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload externalJobUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Update(r.Context(), actor, jobID, externaljobs.UpdateJobInput{
			PartnerName:         payload.PartnerName,
			PartnerEmail:        payload.PartnerEmail,
			ExternalOrderNumber: payload.ExternalOrderNumber,
			Quantity:            payload.Quantity,
			DueDate:             payload.DueDate,
			RequestNote:         payload.RequestNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, externalJobFromModel(job))
	}
}

type externalJobStatusRequest struct {
	Target             string  `json:"target" validate:"required"`
	DeliveryNoteNumber *string `json:"delivery_note_number"`
}

// ExternalJobChangeStatus moves a partner job along its lifecycle.
func ExternalJobChangeStatus(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload externalJobStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseExternalJobStatus(strings.TrimSpace(payload.Target))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status"))
			return
		}

		var receipt *externaljobs.ReceiptInput
		if payload.DeliveryNoteNumber != nil {
			receipt = &externaljobs.ReceiptInput{DeliveryNoteNumber: payload.DeliveryNoteNumber}
		}

		job, err := svc.ChangeStatus(r.Context(), actor, jobID, target, receipt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, externalJobFromModel(job))
	}
}

type partnerResponseRequest struct {
	Note                string  `json:"note" validate:"required"`
	ExternalOrderNumber *string `json:"external_order_number"`
}

// ExternalJobPartnerResponse records the partner's reply on a portal job.
func ExternalJobPartnerResponse(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload partnerResponseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.RecordPartnerResponse(r.Context(), actor, jobID, strings.TrimSpace(payload.Note), payload.ExternalOrderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, externalJobFromModel(job))
	}
}

// ExternalJobDelete removes a partner job and its children.
func ExternalJobDelete(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, jobID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ExternalJobAttachmentCreate registers a stored file against a partner job.
func ExternalJobAttachmentCreate(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload attachmentCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attachment, err := svc.AddAttachment(r.Context(), actor, jobID, externaljobs.AttachmentInput{
			Name:      input.Name,
			URL:       input.URL,
			Category:  input.Category,
			SizeBytes: input.SizeBytes,
			MimeType:  input.MimeType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, jobAttachmentFromModel(*attachment))
	}
}

// ExternalJobAttachmentList returns a partner job's attachments.
func ExternalJobAttachmentList(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		attachments, err := svc.ListAttachments(r.Context(), actor, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]jobAttachmentResponse, 0, len(attachments))
		for _, attachment := range attachments {
			items = append(items, jobAttachmentFromModel(attachment))
		}
		responses.WriteSuccess(w, items)
	}
}

// ExternalJobAttachmentDelete removes a job attachment record.
func ExternalJobAttachmentDelete(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		attachmentID, err := validators.ParseUUIDParam(chi.URLParam(r, "attachmentId"), "attachmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAttachment(r.Context(), actor, jobID, attachmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ExternalJobHistory returns the job's append-only status trail.
func ExternalJobHistory(svc externaljobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		jobID, err := validators.ParseUUIDParam(chi.URLParam(r, "jobId"), "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), actor, jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]jobStatusEntryResponse, 0, len(entries))
		for _, entry := range entries {
			items = append(items, jobStatusEntryFromModel(entry))
		}
		responses.WriteSuccess(w, items)
	}
}

type externalJobResponse struct {
	ID       uuid.UUID `json:"id"`
	OrderID  uuid.UUID `json:"order_id"`
	TenantID uuid.UUID `json:"tenant_id"`

	PartnerID    *string `json:"partner_id"`
	PartnerName  string  `json:"partner_name"`
	PartnerEmail *string `json:"partner_email"`

	RequestMode         enums.ExternalJobRequestMode `json:"request_mode"`
	Status              enums.ExternalJobStatus      `json:"status"`
	ExternalOrderNumber *string                      `json:"external_order_number"`
	Quantity            *int                         `json:"quantity"`
	DueDate             *time.Time                   `json:"due_date"`

	PartnerRequestedAt *time.Time `json:"partner_requested_at"`
	PartnerRespondedAt *time.Time `json:"partner_responded_at"`
	RequestNote        *string    `json:"request_note"`
	ResponseNote       *string    `json:"response_note"`

	DeliveryNoteNumber *string    `json:"delivery_note_number"`
	ReceivedAt         *time.Time `json:"received_at"`
	ReceivedBy         *string    `json:"received_by"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func externalJobFromModel(m *models.ExternalJob) externalJobResponse {
	return externalJobResponse{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		TenantID:            m.TenantID,
		PartnerID:           m.PartnerID,
		PartnerName:         m.PartnerName,
		PartnerEmail:        m.PartnerEmail,
		RequestMode:         m.RequestMode,
		Status:              m.Status,
		ExternalOrderNumber: m.ExternalOrderNumber,
		Quantity:            m.Quantity,
		DueDate:             m.DueDate,
		PartnerRequestedAt:  m.PartnerRequestedAt,
		PartnerRespondedAt:  m.PartnerRespondedAt,
		RequestNote:         m.RequestNote,
		ResponseNote:        m.ResponseNote,
		DeliveryNoteNumber:  m.DeliveryNoteNumber,
		ReceivedAt:          m.ReceivedAt,
		ReceivedBy:          m.ReceivedBy,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

type jobAttachmentResponse struct {
	ID           uuid.UUID                `json:"id"`
	JobID        uuid.UUID                `json:"job_id"`
	Name         string                   `json:"name"`
	URL          string                   `json:"url"`
	Category     enums.AttachmentCategory `json:"category"`
	SizeBytes    int64                    `json:"size_bytes"`
	MimeType     string                   `json:"mime_type"`
	UploaderName string                   `json:"uploader_name"`
	UploaderRole string                   `json:"uploader_role"`
	CreatedAt    time.Time                `json:"created_at"`
}

func jobAttachmentFromModel(m models.ExternalJobAttachment) jobAttachmentResponse {
	return jobAttachmentResponse{
		ID:           m.ID,
		JobID:        m.JobID,
		Name:         m.Name,
		URL:          m.URL,
		Category:     m.Category,
		SizeBytes:    m.SizeBytes,
		MimeType:     m.MimeType,
		UploaderName: m.UploaderName,
		UploaderRole: m.UploaderRole,
		CreatedAt:    m.CreatedAt,
	}
}

type jobStatusEntryResponse struct {
	ID            uuid.UUID               `json:"id"`
	JobID         uuid.UUID               `json:"job_id"`
	Status        enums.ExternalJobStatus `json:"status"`
	ChangedByName string                  `json:"changed_by_name"`
	ChangedByRole string                  `json:"changed_by_role"`
	ChangedAt     time.Time               `json:"changed_at"`
}

func jobStatusEntryFromModel(m models.ExternalJobStatusEntry) jobStatusEntryResponse {
	return jobStatusEntryResponse{
		ID:            m.ID,
		JobID:         m.JobID,
		Status:        m.Status,
		ChangedByName: m.ChangedByName,
		ChangedByRole: m.ChangedByRole,
		ChangedAt:     m.ChangedAt,
	}
}
