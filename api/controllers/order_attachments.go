package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/api/validators"
	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type attachmentCreateRequest struct {
	Name      string `json:"name" validate:"required"`
	URL       string `json:"url" validate:"required"`
	Category  string `json:"category"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
}

func (r attachmentCreateRequest) toInput() (orders.AttachmentInput, error) {
	input := orders.AttachmentInput{
		Name:      strings.TrimSpace(r.Name),
		URL:       strings.TrimSpace(r.URL),
		Category:  enums.AttachmentCategoryOther,
		SizeBytes: r.SizeBytes,
		MimeType:  strings.TrimSpace(r.MimeType),
	}
	if r.Category != "" {
		category, err := enums.ParseAttachmentCategory(strings.TrimSpace(r.Category))
		if err != nil {
			return orders.AttachmentInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid attachment category")
		}
		input.Category = category
	}
	return input, nil
}

// OrderAttachmentCreate registers a stored file against an order.
func OrderAttachmentCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		attachment, err := svc.AddAttachment(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, attachmentFromModel(*attachment))
	}
}

// OrderAttachmentList returns an order's attachments.
func OrderAttachmentList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		attachments, err := svc.ListAttachments(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]attachmentResponse, 0, len(attachments))
		for _, attachment := range attachments {
			items = append(items, attachmentFromModel(attachment))
		}
		responses.WriteSuccess(w, items)
	}
}

// OrderAttachmentDelete removes an attachment record.
func OrderAttachmentDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		attachmentID, err := validators.ParseUUIDParam(chi.URLParam(r, "attachmentId"), "attachmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAttachment(r.Context(), actor, orderID, attachmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type attachmentResponse struct {
	ID           uuid.UUID                `json:"id"`
	OrderID      uuid.UUID                `json:"order_id"`
	Name         string                   `json:"name"`
	URL          string                   `json:"url"`
	Category     enums.AttachmentCategory `json:"category"`
	SizeBytes    int64                    `json:"size_bytes"`
	MimeType     string                   `json:"mime_type"`
	UploaderName string                   `json:"uploader_name"`
	UploaderRole string                   `json:"uploader_role"`
	CreatedAt    time.Time                `json:"created_at"`
}

func attachmentFromModel(m models.OrderAttachment) attachmentResponse {
	return attachmentResponse{
		ID:           m.ID,
		OrderID:      m.OrderID,
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
