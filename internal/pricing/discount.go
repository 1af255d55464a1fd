package pricing

import (
	"strings"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
)

// Currency values are kept at cent precision
const currencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// ResolveDiscount returns the discount tier in effect for quantity, or nil.
// Lines are matched in stored order and the first one whose minimum is met wins,
// even when a later line has a higher threshold or value.
func ResolveDiscount(product models.Product, quantity int) *models.AppliedDiscount {
	d := product.Discount
	if d == nil || len(d.Lines) == 0 {
		return nil
	}

	for _, line := range d.Lines {
		if !Qualifies(line, quantity) {
			continue
		}
		return &models.AppliedDiscount{
			DiscountID:     d.ID,
			DiscountLineID: line.ID,
			Name:           d.Name,
			Value:          line.Value,
			Type:           line.Type,
		}
	}

	return nil
}

// Qualifies reports whether a discount line applies at quantity
func Qualifies(line models.DiscountLine, quantity int) bool {
	return quantity >= line.MinimumPurchase
}

// ApplyDiscountAmount computes the discount amount and final price for a subtotal.
// The final price never goes below zero; the discount amount is reported as-is.
func ApplyDiscountAmount(subtotal decimal.Decimal, applied *models.AppliedDiscount) (discountAmount, finalPrice decimal.Decimal) {
	if applied == nil {
		return decimal.Zero, round(subtotal)
	}

	value := parseValue(applied.Value)
	if isPercentage(applied.Type) {
		discountAmount = subtotal.Mul(value).Div(hundred)
	} else {
		discountAmount = value
	}

	finalPrice = subtotal.Sub(discountAmount)
	if finalPrice.IsNegative() {
		finalPrice = decimal.Zero
	}

	return round(discountAmount), round(finalPrice)
}

// parseValue reads a discount value, treating anything unparsable as zero
func parseValue(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func isPercentage(t models.DiscountType) bool {
	return strings.EqualFold(string(t), string(models.DiscountTypePercentage))
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}
