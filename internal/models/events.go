package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderSubmitted        = "ORDER_SUBMITTED"
	EventTypeOrderSubmissionFailed = "ORDER_SUBMISSION_FAILED"
	EventTypeCatalogUpdated        = "CATALOG_UPDATED"
)

// Catalog entity kinds carried by CatalogUpdatedEvent
const (
	CatalogKindProducts  = "products"
	CatalogKindCustomers = "customers"
	CatalogKindLocation  = "location"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSubmittedEvent published when the order service accepts an order
type OrderSubmittedEvent struct {
	BaseEvent
	BusinessID     string          `json:"business_id"`
	UserID         string          `json:"user_id"`
	CustomerID     string          `json:"customer_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	ExternalID     string          `json:"external_id,omitempty"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Lines          []OrderLineData `json:"lines"`
}

// OrderSubmissionFailedEvent published when a submission is rejected or errors
type OrderSubmissionFailedEvent struct {
	BaseEvent
	BusinessID     string `json:"business_id"`
	UserID         string `json:"user_id"`
	IdempotencyKey string `json:"idempotency_key"`
	Reason         string `json:"reason"`
}

// CatalogUpdatedEvent is consumed when catalog data changes upstream.
// An empty Kinds list means everything for the business changed.
type CatalogUpdatedEvent struct {
	BaseEvent
	BusinessID string   `json:"business_id"`
	Kinds      []string `json:"kinds,omitempty"`
}

// OrderLineData represents line data in events
type OrderLineData struct {
	ProductID      string          `json:"product_id"`
	FlavorID       string          `json:"flavor_id,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}
