package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Session identifies who is composing an order
type Session struct {
	BusinessID string `json:"business_id"`
	UserID     string `json:"user_id"`
}

// Address is a postal address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// Format joins the non-empty address parts into a single line
func (a Address) Format() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// IsZero reports whether no address part is set
func (a Address) IsZero() bool {
	return a.Format() == ""
}

// Customer represents a billing/shipping contact of the seller
type Customer struct {
	ID              string  `json:"id"`
	DisplayName     string  `json:"display_name"`
	CompanyName     string  `json:"company_name"`
	ContactName     string  `json:"contact_name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	BillingAddress  Address `json:"billing_address"`
	ShippingAddress Address `json:"shipping_address"`
}

// ShipTo returns the address the order ships to, falling back to billing
func (c Customer) ShipTo() Address {
	if c.ShippingAddress.IsZero() {
		return c.BillingAddress
	}
	return c.ShippingAddress
}

// Flavor is one selectable variant of a product
type Flavor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product represents a catalog item
type Product struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	OnHand     int              `json:"on_hand"`
	BasePrice  decimal.Decimal  `json:"base_price"`
	OfferPrice *decimal.Decimal `json:"offer_price,omitempty"`
	Flavors    []Flavor         `json:"flavors,omitempty"`
	Discount   *Discount        `json:"discount,omitempty"`
}

// FindFlavor looks up a flavor by id
func (p Product) FindFlavor(id string) (Flavor, bool) {
	for _, f := range p.Flavors {
		if f.ID == id {
			return f, true
		}
	}
	return Flavor{}, false
}

// DiscountType is the kind of reduction a discount line applies
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Discount is a named promotion attached to a product
type Discount struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status string         `json:"status"`
	Lines  []DiscountLine `json:"lines"`
}

// DiscountLine is one threshold tier of a discount
type DiscountLine struct {
	ID              string       `json:"id"`
	MinimumPurchase int          `json:"minimum_purchase"`
	Value           string       `json:"value"`
	Type            DiscountType `json:"type"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// AppliedDiscount is the discount tier in effect for an order line
type AppliedDiscount struct {
	DiscountID     string       `json:"discount_id"`
	DiscountLineID string       `json:"discount_line_id"`
	Name           string       `json:"name"`
	Value          string       `json:"value"`
	Type           DiscountType `json:"type"`
}

// OrderLine is one row of an in-progress order
type OrderLine struct {
	ProductID       string           `json:"product_id"`
	ProductName     string           `json:"product_name"`
	Category        string           `json:"category"`
	FlavorID        string           `json:"flavor_id,omitempty"`
	FlavorName      string           `json:"flavor_name,omitempty"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	Quantity        int              `json:"quantity"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	AppliedDiscount *AppliedDiscount `json:"applied_discount"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	FinalPrice      decimal.Decimal  `json:"final_price"`
}

// Order is the in-progress order held for one session
type Order struct {
	Customer    *Customer          `json:"customer,omitempty"`
	Lines       []OrderLine        `json:"lines"`
	ShippingFee decimal.Decimal    `json:"shipping_fee"`
	Notes       string             `json:"notes"`
	Products    map[string]Product `json:"products,omitempty"`
}

// Location is a business location orders ship from
type Location struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// OrderPayload is the priced order handed to the order service
type OrderPayload struct {
	BusinessID      string          `json:"business_id"`
	UserID          string          `json:"user_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CompanyName     string          `json:"company_name"`
	ContactName     string          `json:"contact_name"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	BillingAddress  Address         `json:"billing_address"`
	ShippingAddress Address         `json:"shipping_address"`
	ShipTo          string          `json:"ship_to"`
	ShipFrom        string          `json:"ship_from"`
	Lines           []OrderLine     `json:"lines"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	Notes           string          `json:"notes"`
}

// SubmitResult is the order service's answer to a submission
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

// Submission is a ledger record of one submit attempt
type Submission struct {
	ID             int64           `db:"id" json:"id"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"`
	BusinessID     string          `db:"business_id" json:"business_id"`
	UserID         string          `db:"user_id" json:"user_id"`
	CustomerID     string          `db:"customer_id" json:"customer_id"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	ShippingFee    decimal.Decimal `db:"shipping_fee" json:"shipping_fee"`
	GrandTotal     decimal.Decimal `db:"grand_total" json:"grand_total"`
	LineCount      int             `db:"line_count" json:"line_count"`
	Status         string          `db:"status" json:"status"`
	Message        string          `db:"message" json:"message,omitempty"`
	ExternalID     string          `db:"external_id" json:"external_id,omitempty"`
	Payload        []byte          `db:"payload" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Submission statuses
const (
	SubmissionStatusPending   = "PENDING"
	SubmissionStatusSubmitted = "SUBMITTED"
	SubmissionStatusFailed    = "FAILED"
)
