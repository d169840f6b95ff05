package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/angelmondragon/prodflow-backend/pkg/config"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
)

// HTTPAdapter fetches accounting records over a JSON REST endpoint. The
// remote system exposes one order feed per tenant slug.
type HTTPAdapter struct {
	cfg    config.AccountingConfig
	client *http.Client
}

// NewHTTPAdapter builds the default accounting adapter.
func NewHTTPAdapter(cfg config.AccountingConfig) (*HTTPAdapter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("accounting base url is required")
	}
	return &HTTPAdapter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

func (a *HTTPAdapter) FetchOrders(ctx context.Context, tenant models.Tenant) ([]Record, error) {
	endpoint, err := url.JoinPath(a.cfg.BaseURL, "tenants", tenant.Slug, "orders")
	if err != nil {
		return nil, fmt.Errorf("build accounting url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build accounting request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch accounting orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("accounting responded %d for tenant %s", resp.StatusCode, tenant.Slug)
	}

	var payload struct {
		Orders []Record `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode accounting response: %w", err)
	}
	return payload.Orders, nil
}
