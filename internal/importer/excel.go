package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Row is one already-parsed spreadsheet row. Parsing the workbook itself is
// an upstream concern; this service receives structured rows.
type Row struct {
	OrderNumber string
	Customer    string
	ProductName *string
	Quantity    *int
	Priority    enums.OrderPriority
	DueDate     *time.Time
}

// Result reports what an ingestion run did.
type Result struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// ExcelService upserts spreadsheet rows into the order store.
type ExcelService struct {
	repo orders.Repository
	tx   txRunner
}

// NewExcelService builds the excel import service.
func NewExcelService(repo orders.Repository, tx txRunner) (*ExcelService, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &ExcelService{repo: repo, tx: tx}, nil
}

// Import upserts the rows keyed on order number. Duplicate numbers within one
// batch collapse to the last occurrence before any write happens; counts are
// derived by diffing the pre-existing number set.
func (s *ExcelService) Import(ctx context.Context, actor auth.Actor, rows []Row) (Result, error) {
	var result Result
	if actor.Role == enums.ActorRoleViewer {
		return result, pkgerrors.New(pkgerrors.CodeForbidden, "viewers cannot import orders")
	}
	rows = DedupeRows(rows)
	if len(rows) == 0 {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "no importable rows")
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Customer) == "" {
			return result, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("row %q: customer required", row.OrderNumber))
		}
		if row.Priority != "" && !row.Priority.IsValid() {
			return result, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("row %q: invalid priority %q", row.OrderNumber, row.Priority))
		}
	}

	numbers := make([]string, 0, len(rows))
	for _, row := range rows {
		numbers = append(numbers, row.OrderNumber)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindSourcesByNumbers(ctx, actor.TenantID, numbers)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up existing orders")
		}

		for _, row := range rows {
			if _, found := existing[row.OrderNumber]; found {
				if err := s.updateRow(ctx, repo, actor, row); err != nil {
					return err
				}
				result.Updated++
				continue
			}
			if err := s.insertRow(ctx, repo, actor, row); err != nil {
				return err
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func (s *ExcelService) insertRow(ctx context.Context, repo orders.Repository, actor auth.Actor, row Row) error {
	priority := row.Priority
	if priority == "" {
		priority = enums.OrderPriorityNormal
	}
	order := &models.Order{
		TenantID:       actor.TenantID,
		OrderNumber:    row.OrderNumber,
		Customer:       strings.TrimSpace(row.Customer),
		ProductName:    row.ProductName,
		Quantity:       row.Quantity,
		Priority:       priority,
		Status:         enums.OrderStatusDraft,
		Source:         enums.OrderSourceExcel,
		DueDate:        row.DueDate,
		ChecklistState: types.ChecklistState{},
	}
	if _, err := repo.Create(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("insert row %q", row.OrderNumber))
	}
	return nil
}

func (s *ExcelService) updateRow(ctx context.Context, repo orders.Repository, actor auth.Actor, row Row) error {
	order, err := repo.FindByNumber(ctx, actor.TenantID, row.OrderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("row %q vanished mid-import", row.OrderNumber))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing order")
	}
	updates := map[string]any{
		"customer": strings.TrimSpace(row.Customer),
		"source":   enums.OrderSourceExcel,
	}
	if row.ProductName != nil {
		updates["product_name"] = *row.ProductName
	}
	if row.Quantity != nil {
		updates["quantity"] = *row.Quantity
	}
	if row.Priority != "" {
		updates["priority"] = row.Priority
	}
	if row.DueDate != nil {
		updates["due_date"] = *row.DueDate
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("update row %q", row.OrderNumber))
	}
	return nil
}

// DedupeRows collapses duplicate order numbers, keeping the last occurrence's
// field values. Rows with a blank number are dropped.
func DedupeRows(rows []Row) []Row {
	index := map[string]int{}
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		number := strings.TrimSpace(row.OrderNumber)
		if number == "" {
			continue
		}
		row.OrderNumber = number
		if i, seen := index[number]; seen {
			out[i] = row
			continue
		}
		index[number] = len(out)
		out = append(out, row)
	}
	return out
}
