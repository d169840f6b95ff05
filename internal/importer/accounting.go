package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/prodflow-backend/internal/orders"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
	"github.com/angelmondragon/prodflow-backend/pkg/types"
)

// Record is one order row fetched from the external accounting system.
type Record struct {
	AccountingID string            `json:"accountingId"`
	OrderNumber  string            `json:"orderNumber"`
	Customer     string            `json:"customer"`
	ProductName  *string           `json:"productName,omitempty"`
	Quantity     *int              `json:"quantity,omitempty"`
	DueDate      *time.Time        `json:"dueDate,omitempty"`
	Hierarchy    map[string]string `json:"hierarchy,omitempty"` // level key -> node label
	Payload      types.JSONMap     `json:"payload,omitempty"`
}

// Adapter fetches order records from an external accounting system. The
// concrete transport (HTTP, file drop, message queue) is pluggable.
type Adapter interface {
	FetchOrders(ctx context.Context, tenant models.Tenant) ([]Record, error)
}

type tenantLister interface {
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	FindTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

type hierarchyMapper interface {
	MapLabels(ctx context.Context, tenantID uuid.UUID, labels map[string]string) (types.HierarchyTags, error)
}

// SyncService reconciles accounting records into the order store without
// ever touching human-entered rows.
type SyncService struct {
	repo      orders.Repository
	tenants   tenantLister
	hierarchy hierarchyMapper
	adapter   Adapter
	tx        txRunner
	logg      *logger.Logger
}

// NewSyncService builds the accounting sync service.
func NewSyncService(repo orders.Repository, tenants tenantLister, hierarchy hierarchyMapper, adapter Adapter, tx txRunner, logg *logger.Logger) (*SyncService, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tenants == nil {
		return nil, fmt.Errorf("tenant lister required")
	}
	if hierarchy == nil {
		return nil, fmt.Errorf("hierarchy mapper required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("accounting adapter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &SyncService{
		repo:      repo,
		tenants:   tenants,
		hierarchy: hierarchy,
		adapter:   adapter,
		tx:        tx,
		logg:      logg,
	}, nil
}

// SyncTenant fetches and upserts one tenant's accounting records. Order
// numbers claimed by a manual or excel row are skipped, never overwritten.
func (s *SyncService) SyncTenant(ctx context.Context, tenantID uuid.UUID) (Result, error) {
	var result Result
	if tenantID == uuid.Nil {
		return result, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	tenant, err := s.tenants.FindTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}

	records, err := s.adapter.FetchOrders(ctx, *tenant)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch accounting orders")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, record := range records {
			outcome, err := s.applyRecord(ctx, repo, tenant.ID, record, now)
			if err != nil {
				return err
			}
			switch outcome {
			case outcomeInserted:
				result.Inserted++
			case outcomeUpdated:
				result.Updated++
			default:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id": tenant.ID.String(),
			"inserted":  result.Inserted,
			"updated":   result.Updated,
			"skipped":   result.Skipped,
		})
		s.logg.Info(logCtx, "accounting sync completed")
	}
	return result, nil
}

// SyncAll runs SyncTenant for every tenant, continuing past per-tenant
// failures so one broken integration cannot stall the rest.
func (s *SyncService) SyncAll(ctx context.Context) (Result, error) {
	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenants")
	}
	var total Result
	var firstErr error
	for _, tenant := range tenants {
		result, err := s.SyncTenant(ctx, tenant.ID)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithTenantID(ctx, tenant.ID.String()), "tenant sync failed", err)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total.Inserted += result.Inserted
		total.Updated += result.Updated
		total.Skipped += result.Skipped
	}
	return total, firstErr
}

type recordOutcome int

const (
	outcomeSkipped recordOutcome = iota
	outcomeInserted
	outcomeUpdated
)

func (s *SyncService) applyRecord(ctx context.Context, repo orders.Repository, tenantID uuid.UUID, record Record, now time.Time) (recordOutcome, error) {
	number := strings.TrimSpace(record.OrderNumber)
	if number == "" || strings.TrimSpace(record.Customer) == "" {
		return outcomeSkipped, nil
	}

	tags, err := s.hierarchy.MapLabels(ctx, tenantID, record.Hierarchy)
	if err != nil {
		return outcomeSkipped, err
	}

	existing, err := repo.FindByNumber(ctx, tenantID, number)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up existing order")
	}

	if existing != nil {
		if !orders.CanOverwrite(existing.Source, enums.OrderSourceAccounting) {
			return outcomeSkipped, nil
		}
		updates := map[string]any{
			"customer":             strings.TrimSpace(record.Customer),
			"accounting_id":        record.AccountingID,
			"accounting_synced_at": now,
		}
		if record.ProductName != nil {
			updates["product_name"] = *record.ProductName
		}
		if record.Quantity != nil {
			updates["quantity"] = *record.Quantity
		}
		if record.DueDate != nil {
			updates["due_date"] = *record.DueDate
		}
		if len(tags) > 0 {
			updates["hierarchy_tags"] = tags
		}
		if record.Payload != nil {
			updates["accounting_payload"] = &record.Payload
		}
		if err := repo.Update(ctx, existing.ID, updates); err != nil {
			return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("update order %q", number))
		}
		return outcomeUpdated, nil
	}

	accountingID := record.AccountingID
	syncedAt := now
	order := &models.Order{
		TenantID:           tenantID,
		OrderNumber:        number,
		Customer:           strings.TrimSpace(record.Customer),
		ProductName:        record.ProductName,
		Quantity:           record.Quantity,
		Priority:           enums.OrderPriorityNormal,
		Status:             enums.OrderStatusDraft,
		Source:             enums.OrderSourceAccounting,
		DueDate:            record.DueDate,
		HierarchyTags:      tags,
		ChecklistState:     types.ChecklistState{},
		AccountingID:       &accountingID,
		AccountingSyncedAt: &syncedAt,
	}
	if record.Payload != nil {
		order.AccountingPayload = &record.Payload
	}
	if _, err := repo.Create(ctx, order); err != nil {
		return outcomeSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("insert order %q", number))
	}
	return outcomeInserted, nil
}
