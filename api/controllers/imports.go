package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/api/validators"
	"github.com/angelmondragon/prodflow-backend/internal/importer"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

type excelRowRequest struct {
	OrderNumber string     `json:"order_number" validate:"required"`
	Customer    string     `json:"customer" validate:"required"`
	ProductName *string    `json:"product_name"`
	Quantity    *int       `json:"quantity"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

type excelImportRequest struct {
	Rows []excelRowRequest `json:"rows" validate:"required,min=1,dive"`
}

// ExcelImport upserts a batch of already-parsed spreadsheet rows.
func ExcelImport(svc *importer.ExcelService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload excelImportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows := make([]importer.Row, 0, len(payload.Rows))
		for _, raw := range payload.Rows {
			row := importer.Row{
				OrderNumber: strings.TrimSpace(raw.OrderNumber),
				Customer:    strings.TrimSpace(raw.Customer),
				ProductName: raw.ProductName,
				Quantity:    raw.Quantity,
				DueDate:     raw.DueDate,
			}
			if raw.Priority != "" {
				priority, err := enums.ParseOrderPriority(strings.TrimSpace(raw.Priority))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority"))
					return
				}
				row.Priority = priority
			}
			rows = append(rows, row)
		}

		result, err := svc.Import(r.Context(), actor, rows)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AccountingSyncNow runs one on-demand sync for the caller's tenant.
func AccountingSyncNow(svc *importer.SyncService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		result, err := svc.SyncTenant(r.Context(), actor.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
