package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
)

// envelope is the response shape every catalog endpoint uses
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// flexString accepts a JSON string, number or null
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// Decimal parses the value; ok is false when it is empty or not numeric
func (f flexString) Decimal() (decimal.Decimal, bool) {
	if f == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(f))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Int parses the value as a whole number, rounding toward zero, 0 when unparsable
func (f flexString) Int() int {
	if n, err := strconv.Atoi(string(f)); err == nil {
		return n
	}
	if d, ok := f.Decimal(); ok {
		return int(d.IntPart())
	}
	return 0
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// Time parses the value with the layouts the catalog is known to emit
func (f flexString) Time() time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, string(f)); err == nil {
			return t
		}
	}
	return time.Time{}
}

type addressWire struct {
	Street     string     `json:"street"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	PostalCode flexString `json:"postal_code"`
}

func (a addressWire) normalize() models.Address {
	return models.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: string(a.PostalCode),
	}
}

type customerWire struct {
	ID              flexString  `json:"id"`
	DisplayName     string      `json:"display_name"`
	CompanyName     string      `json:"company_name"`
	ContactName     string      `json:"contact_name"`
	Email           string      `json:"email"`
	Phone           flexString  `json:"phone"`
	BillingAddress  addressWire `json:"billing_address"`
	ShippingAddress addressWire `json:"shipping_address"`
}

func (c customerWire) normalize() models.Customer {
	display := strings.TrimSpace(c.DisplayName)
	if display == "" {
		display = strings.TrimSpace(c.CompanyName)
	}
	return models.Customer{
		ID:              string(c.ID),
		DisplayName:     display,
		CompanyName:     strings.TrimSpace(c.CompanyName),
		ContactName:     strings.TrimSpace(c.ContactName),
		Email:           strings.TrimSpace(c.Email),
		Phone:           string(c.Phone),
		BillingAddress:  c.BillingAddress.normalize(),
		ShippingAddress: c.ShippingAddress.normalize(),
	}
}

type discountLineWire struct {
	ID              flexString `json:"id"`
	MinimumPurchase flexString `json:"minimum_purchase"`
	DiscountValue   flexString `json:"discount_value"`
	DiscountType    string     `json:"discount_type"`
	CreatedAt       flexString `json:"created_at"`
	UpdatedAt       flexString `json:"updated_at"`
}

type discountWire struct {
	ID     flexString         `json:"id"`
	Name   string             `json:"name"`
	Status string             `json:"status"`
	Lines  []discountLineWire `json:"discount_lines"`
}

func (d *discountWire) normalize() *models.Discount {
	if d == nil || d.ID == "" {
		return nil
	}
	out := &models.Discount{
		ID:     string(d.ID),
		Name:   strings.TrimSpace(d.Name),
		Status: strings.TrimSpace(d.Status),
		Lines:  make([]models.DiscountLine, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, models.DiscountLine{
			ID:              string(l.ID),
			MinimumPurchase: l.MinimumPurchase.Int(),
			Value:           string(l.DiscountValue),
			Type:            normalizeDiscountType(l.DiscountType),
			CreatedAt:       l.CreatedAt.Time(),
			UpdatedAt:       l.UpdatedAt.Time(),
		})
	}
	return out
}

func normalizeDiscountType(s string) models.DiscountType {
	if strings.EqualFold(strings.TrimSpace(s), string(models.DiscountTypePercentage)) {
		return models.DiscountTypePercentage
	}
	return models.DiscountTypeFixed
}

type productWire struct {
	ID         flexString    `json:"id"`
	Name       string        `json:"name"`
	Category   string        `json:"category"`
	Quantity   flexString    `json:"quantity"`
	Price      flexString    `json:"price"`
	OfferPrice flexString    `json:"offer_price"`
	Flavors    string        `json:"flavors"`
	Discount   *discountWire `json:"discount"`
}

func (p productWire) normalize() models.Product {
	onHand := p.Quantity.Int()
	if onHand < 0 {
		onHand = 0
	}
	base, _ := p.Price.Decimal()

	out := models.Product{
		ID:        string(p.ID),
		Name:      strings.TrimSpace(p.Name),
		Category:  strings.TrimSpace(p.Category),
		OnHand:    onHand,
		BasePrice: base,
		Flavors:   SplitFlavors(p.Flavors),
		Discount:  p.Discount.normalize(),
	}
	if offer, ok := p.OfferPrice.Decimal(); ok {
		out.OfferPrice = &offer
	}
	return out
}

type locationWire struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Street     string     `json:"street"`
	City       string     `json:"city"`
	State      string     `json:"state"`
	PostalCode flexString `json:"postal_code"`
}

func (l locationWire) normalize() models.Location {
	return models.Location{
		ID:   string(l.ID),
		Name: strings.TrimSpace(l.Name),
		Address: addressWire{
			Street: l.Street, City: l.City, State: l.State, PostalCode: l.PostalCode,
		}.normalize(),
	}
}

type submitResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	OrderID flexString `json:"order_id"`
}

// SplitFlavors turns the catalog's comma-separated flavor list into flavors.
// Blank entries and repeats are dropped; ids are the lowercased, dash-joined name.
func SplitFlavors(s string) []models.Flavor {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []models.Flavor
	seen := make(map[string]bool)
	for _, raw := range strings.Split(s, ",") {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" {
			continue
		}
		id := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, models.Flavor{ID: id, Name: name})
	}
	return out
}
