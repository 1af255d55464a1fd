package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"order-composer/internal/models"
	"order-composer/internal/util"

	"go.uber.org/zap"
)

// ErrNotFound is returned when the catalog has no such business or record
var ErrNotFound = errors.New("not found")

// maxBody caps how much of a catalog response is read
const maxBody = 8 << 20

// Client talks to the marketplace catalog and order services
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a catalog client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

// Customers lists the customers of a business
func (c *Client) Customers(ctx context.Context, businessID string) ([]models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.Customers")
	defer span.End()

	var resp envelope[[]customerWire]
	if err := c.get(ctx, models.CatalogKindCustomers, businessPath(businessID, "customers"), &resp); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	customers := make([]models.Customer, 0, len(resp.Data))
	for _, w := range resp.Data {
		if w.ID == "" {
			continue
		}
		customers = append(customers, w.normalize())
	}
	return customers, nil
}

// Products lists the products of a business with their discounts
func (c *Client) Products(ctx context.Context, businessID string) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.Products")
	defer span.End()

	var resp envelope[[]productWire]
	if err := c.get(ctx, models.CatalogKindProducts, businessPath(businessID, "products"), &resp); err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	products := make([]models.Product, 0, len(resp.Data))
	for _, w := range resp.Data {
		if w.ID == "" {
			continue
		}
		products = append(products, w.normalize())
	}
	return products, nil
}

// Location returns the location a business ships from
func (c *Client) Location(ctx context.Context, businessID string) (*models.Location, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.Location")
	defer span.End()

	var resp envelope[*locationWire]
	if err := c.get(ctx, models.CatalogKindLocation, businessPath(businessID, "location"), &resp); err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("location for business %s: %w", businessID, ErrNotFound)
	}

	loc := resp.Data.normalize()
	return &loc, nil
}

// SubmitOrder posts an assembled order to the order service
func (c *Client) SubmitOrder(ctx context.Context, payload *models.OrderPayload) (*models.SubmitResult, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.SubmitOrder")
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if payload.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", payload.IdempotencyKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		util.RecordError(span, err)
		return nil, fmt.Errorf("order service request failed: %w", err)
	}
	defer res.Body.Close()

	var out submitResponse
	decodeErr := json.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(&out)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		err := fmt.Errorf("order service returned %d: %s", res.StatusCode, msg)
		util.RecordError(span, err)
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode order service response: %w", decodeErr)
	}

	if !out.Success {
		c.logger.Warn("Order service rejected order",
			zap.String("business_id", payload.BusinessID),
			zap.String("idempotency_key", payload.IdempotencyKey),
			zap.String("message", out.Message))
	}

	return &models.SubmitResult{
		Success: out.Success,
		Message: out.Message,
		OrderID: string(out.OrderID),
	}, nil
}

func (c *Client) get(ctx context.Context, kind, path string, dst interface{}) error {
	start := time.Now()
	defer func() {
		util.CatalogRequestLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s failed: %w", kind, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("catalog %s: %w", kind, ErrNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("catalog %s returned %d", kind, res.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, maxBody)).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode catalog %s: %w", kind, err)
	}
	return nil
}

func businessPath(businessID, resource string) string {
	return fmt.Sprintf("/businesses/%s/%s", url.PathEscape(businessID), resource)
}
