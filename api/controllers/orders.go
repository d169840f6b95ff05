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
	"github.com/angelmondragon/prodflow-backend/pkg/pagination"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

type orderCreateRequest struct {
	OrderNumber    string               `json:"order_number" validate:"required"`
	Customer       string               `json:"customer" validate:"required"`
	ProductName    *string              `json:"product_name"`
	Quantity       *int                 `json:"quantity"`
	Priority       string               `json:"priority"`
	DueDate        *time.Time           `json:"due_date"`
	HierarchyTags  map[string]string    `json:"hierarchy_tags"`
	InitialComment *string              `json:"initial_comment"`
}

func (r orderCreateRequest) toInput() (orders.CreateOrderInput, error) {
	input := orders.CreateOrderInput{
		OrderNumber:    strings.TrimSpace(r.OrderNumber),
		Customer:       strings.TrimSpace(r.Customer),
		ProductName:    r.ProductName,
		Quantity:       r.Quantity,
		DueDate:        r.DueDate,
		Source:         enums.OrderSourceManual,
		InitialComment: r.InitialComment,
	}
	if r.Priority != "" {
		priority, err := enums.ParseOrderPriority(strings.TrimSpace(r.Priority))
		if err != nil {
			return orders.CreateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		input.Priority = priority
	}
	if len(r.HierarchyTags) > 0 {
		input.HierarchyTags = types.HierarchyTags(r.HierarchyTags)
	}
	return input, nil
}

// OrderCreate handles manual order creation.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload orderCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orderResponseFromModel(created))
	}
}

// OrderList returns a cursor page of orders with optional filters.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := parseOrderFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(list.Orders))
		for i := range list.Orders {
			items = append(items, orderResponseFromModel(&list.Orders[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"items":  items,
			"cursor": list.NextCursor,
		})
	}
}

func parseOrderFilters(r *http.Request) (orders.Filters, error) {
	var filters orders.Filters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("priority")); raw != "" {
		priority, err := enums.ParseOrderPriority(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority filter")
		}
		filters.Priority = &priority
	}
	if raw := strings.TrimSpace(query.Get("source")); raw != "" {
		source, err := enums.ParseOrderSource(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid source filter")
		}
		filters.Source = &source
	}
	if raw := strings.TrimSpace(query.Get("engineer_id")); raw != "" {
		id, err := validators.ParseUUIDParam(raw, "engineer_id")
		if err != nil {
			return filters, err
		}
		filters.AssignedEngineerID = &id
	}
	if raw := strings.TrimSpace(query.Get("unassigned")); raw != "" {
		unassigned, err := validators.ParseQueryBool(r, "unassigned", false)
		if err != nil {
			return filters, err
		}
		filters.Unassigned = unassigned
	}
	filters.Search = strings.TrimSpace(query.Get("search"))
	return filters, nil
}

// OrderDetail returns one order with its children preloaded.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderDetailFromModel(order))
	}
}

type orderUpdateRequest struct {
	Customer          *string           `json:"customer"`
	ProductName       *string           `json:"product_name"`
	Quantity          *int              `json:"quantity"`
	Priority          *string           `json:"priority"`
	DueDate           *time.Time        `json:"due_date"`
	ClearDueDate      bool              `json:"clear_due_date"`
	HierarchyTags     map[string]string `json:"hierarchy_tags"`
	ProductionMinutes *int              `json:"production_minutes"`
}

func (r orderUpdateRequest) toInput() (orders.UpdateOrderInput, error) {
	input := orders.UpdateOrderInput{
		Customer:          r.Customer,
		ProductName:       r.ProductName,
		Quantity:          r.Quantity,
		DueDate:           r.DueDate,
		ClearDueDate:      r.ClearDueDate,
		ProductionMinutes: r.ProductionMinutes,
	}
	if r.Priority != nil {
		priority, err := enums.ParseOrderPriority(strings.TrimSpace(*r.Priority))
		if err != nil {
			return orders.UpdateOrderInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		input.Priority = &priority
	}
	if len(r.HierarchyTags) > 0 {
		input.HierarchyTags = types.HierarchyTags(r.HierarchyTags)
	}
	return input, nil
}

// OrderUpdate applies a partial patch to order fields.
func OrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload orderUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(updated))
	}
}

// OrderDelete removes an order and everything it owns.
func OrderDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), actor, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// OrderHistory returns the append-only status trail, oldest first.
func OrderHistory(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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

		entries, err := svc.History(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]statusEntryResponse, 0, len(entries))
		for _, entry := range entries {
			items = append(items, statusEntryFromModel(entry))
		}
		responses.WriteSuccess(w, items)
	}
}

type checklistItemRequest struct {
	Checked bool `json:"checked"`
}

// OrderChecklistSet toggles a single checklist item.
func OrderChecklistSet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
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
		itemID := strings.TrimSpace(chi.URLParam(r, "itemId"))
		if itemID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checklist item id required"))
			return
		}

		var payload checklistItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetChecklistItem(r.Context(), actor, orderID, itemID, payload.Checked)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(updated))
	}
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TenantID    uuid.UUID           `json:"tenant_id"`
	OrderNumber string              `json:"order_number"`
	Customer    string              `json:"customer"`
	ProductName *string             `json:"product_name"`
	Quantity    *int                `json:"quantity"`
	Priority    enums.OrderPriority `json:"priority"`
	Status      enums.OrderStatus   `json:"status"`
	Source      enums.OrderSource   `json:"source"`
	DueDate     *time.Time          `json:"due_date"`

	HierarchyTags  types.HierarchyTags  `json:"hierarchy_tags,omitempty"`
	ChecklistState types.ChecklistState `json:"checklist_state,omitempty"`

	AssignedEngineerID   *uuid.UUID `json:"assigned_engineer_id"`
	AssignedEngineerName *string    `json:"assigned_engineer_name"`
	EngineerAssignedAt   *time.Time `json:"engineer_assigned_at"`
	AssignedManagerID    *uuid.UUID `json:"assigned_manager_id"`
	AssignedManagerName  *string    `json:"assigned_manager_name"`
	ManagerAssignedAt    *time.Time `json:"manager_assigned_at"`

	StatusChangedBy   *string    `json:"status_changed_by"`
	StatusChangedRole *string    `json:"status_changed_role"`
	StatusChangedAt   *time.Time `json:"status_changed_at"`

	AccountingID       *string    `json:"accounting_id"`
	AccountingSyncedAt *time.Time `json:"accounting_synced_at"`

	ProductionMinutes int       `json:"production_minutes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type orderDetailResponse struct {
	orderResponse
	Attachments   []attachmentResponse  `json:"attachments"`
	Comments      []commentResponse     `json:"comments"`
	StatusEntries []statusEntryResponse `json:"status_entries"`
	ExternalJobs  []externalJobResponse `json:"external_jobs"`
}

func orderResponseFromModel(m *models.Order) orderResponse {
	return orderResponse{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		OrderNumber:          m.OrderNumber,
		Customer:             m.Customer,
		ProductName:          m.ProductName,
		Quantity:             m.Quantity,
		Priority:             m.Priority,
		Status:               m.Status,
		Source:               m.Source,
		DueDate:              m.DueDate,
		HierarchyTags:        m.HierarchyTags,
		ChecklistState:       m.ChecklistState,
		AssignedEngineerID:   m.AssignedEngineerID,
		AssignedEngineerName: m.AssignedEngineerName,
		EngineerAssignedAt:   m.EngineerAssignedAt,
		AssignedManagerID:    m.AssignedManagerID,
		AssignedManagerName:  m.AssignedManagerName,
		ManagerAssignedAt:    m.ManagerAssignedAt,
		StatusChangedBy:      m.StatusChangedBy,
		StatusChangedRole:    m.StatusChangedRole,
		StatusChangedAt:      m.StatusChangedAt,
		AccountingID:         m.AccountingID,
		AccountingSyncedAt:   m.AccountingSyncedAt,
		ProductionMinutes:    m.ProductionMinutes,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func orderDetailFromModel(m *models.Order) orderDetailResponse {
	detail := orderDetailResponse{
		orderResponse: orderResponseFromModel(m),
		Attachments:   make([]attachmentResponse, 0, len(m.Attachments)),
		Comments:      make([]commentResponse, 0, len(m.Comments)),
		StatusEntries: make([]statusEntryResponse, 0, len(m.StatusEntries)),
		ExternalJobs:  make([]externalJobResponse, 0, len(m.ExternalJobs)),
	}
	for _, attachment := range m.Attachments {
		detail.Attachments = append(detail.Attachments, attachmentFromModel(attachment))
	}
	for _, comment := range m.Comments {
		detail.Comments = append(detail.Comments, commentFromModel(comment))
	}
	for _, entry := range m.StatusEntries {
		detail.StatusEntries = append(detail.StatusEntries, statusEntryFromModel(entry))
	}
	for i := range m.ExternalJobs {
		detail.ExternalJobs = append(detail.ExternalJobs, externalJobFromModel(&m.ExternalJobs[i]))
	}
	return detail
}

type statusEntryResponse struct {
	ID            uuid.UUID         `json:"id"`
	Status        enums.OrderStatus `json:"status"`
	ChangedByName string            `json:"changed_by_name"`
	ChangedByRole string            `json:"changed_by_role"`
	ChangedAt     time.Time         `json:"changed_at"`
}

func statusEntryFromModel(m models.OrderStatusEntry) statusEntryResponse {
	return statusEntryResponse{
		ID:            m.ID,
		Status:        m.Status,
		ChangedByName: m.ChangedByName,
		ChangedByRole: m.ChangedByRole,
		ChangedAt:     m.ChangedAt,
	}
}
