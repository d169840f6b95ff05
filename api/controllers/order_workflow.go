package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/api/validators"
	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type statusChangeRequest struct {
	Target string `json:"target" validate:"required"`
}

// OrderChangeStatus moves an order forward along the workflow.
func OrderChangeStatus(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
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

		var payload statusChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Target))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status"))
			return
		}

		order, err := wf.ChangeStatus(r.Context(), actor, orderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

type sendBackRequest struct {
	Target string  `json:"target" validate:"required"`
	Reason string  `json:"reason" validate:"required"`
	Note   *string `json:"note"`
}

// OrderSendBack regresses an order with a mandatory reason.
func OrderSendBack(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
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

		var payload sendBackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(strings.TrimSpace(payload.Target))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status"))
			return
		}

		order, err := wf.SendBack(r.Context(), actor, orderID, target, strings.TrimSpace(payload.Reason), payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

// OrderTake lets an engineer claim an unassigned order from the queue.
func OrderTake(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
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

		order, err := wf.Take(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

// OrderReturnToQueue lets the assigned engineer step off an order.
func OrderReturnToQueue(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
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

		order, err := wf.ReturnToQueue(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

type assignRequest struct {
	AssigneeID   string `json:"assignee_id" validate:"required"`
	AssigneeName string `json:"assignee_name" validate:"required"`
}

// OrderAssignEngineer assigns a specific engineer.
func OrderAssignEngineer(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
	return assignHandler(wf.AssignEngineer, logg)
}

// OrderAssignManager assigns a production manager.
func OrderAssignManager(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
	return assignHandler(wf.AssignManager, logg)
}

// OrderClearEngineer removes the engineer assignment.
func OrderClearEngineer(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
	return clearHandler(wf.ClearEngineer, logg)
}

// OrderClearManager removes the manager assignment.
func OrderClearManager(wf orders.Workflow, logg *logger.Logger) http.HandlerFunc {
	return clearHandler(wf.ClearManager, logg)
}

func assignHandler(assign func(ctx context.Context, actor auth.Actor, orderID, assigneeID uuid.UUID, assigneeName string) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
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

		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		assigneeID, err := validators.ParseUUIDParam(payload.AssigneeID, "assignee_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := assign(r.Context(), actor, orderID, assigneeID, strings.TrimSpace(payload.AssigneeName))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}

func clearHandler(clear func(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error), logg *logger.Logger) http.HandlerFunc {
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

		order, err := clear(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderResponseFromModel(order))
	}
}
