package pricing

import (
	"order-composer/internal/models"

	"github.com/shopspring/decimal"
)

// UnitPrice returns the offer price when the product has one, else the base price
func UnitPrice(product models.Product) decimal.Decimal {
	if product.OfferPrice != nil {
		return *product.OfferPrice
	}
	return product.BasePrice
}

// RecomputeLine brings a line's derived fields in line with its current quantity.
// Every path that changes a line's quantity goes through here.
func RecomputeLine(line models.OrderLine, product models.Product) models.OrderLine {
	line.Subtotal = round(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	line.AppliedDiscount = ResolveDiscount(product, line.Quantity)
	line.DiscountAmount, line.FinalPrice = ApplyDiscountAmount(line.Subtotal, line.AppliedDiscount)
	return line
}

// NewLine builds a fully priced line for product at quantity
func NewLine(product models.Product, flavor *models.Flavor, quantity int) models.OrderLine {
	line := models.OrderLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		Category:    product.Category,
		UnitPrice:   UnitPrice(product),
		Quantity:    quantity,
	}
	if flavor != nil {
		line.FlavorID = flavor.ID
		line.FlavorName = flavor.Name
	}
	return RecomputeLine(line, product)
}

// Totals sums post-discount line prices and adds shipping
func Totals(lines []models.OrderLine, shippingFee decimal.Decimal) (subtotal, grandTotal decimal.Decimal) {
	subtotal = decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.FinalPrice)
	}
	return round(subtotal), round(subtotal.Add(shippingFee))
}
