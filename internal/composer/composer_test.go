package composer

import (
	"errors"
	"testing"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = models.Session{BusinessID: "biz-1", UserID: "user-1"}

func acme() models.Customer {
	return models.Customer{
		ID:          "c-1",
		DisplayName: "Acme Dispensary",
		CompanyName: "Acme Dispensary LLC",
		ContactName: "Jo Park",
		Email:       "orders@acme.test",
		BillingAddress: models.Address{
			Street: "1 Main St", City: "Tulsa", State: "OK", PostalCode: "74103",
		},
	}
}

func blueDream() *models.Product {
	return &models.Product{
		ID:        "p-1",
		Name:      "Blue Dream",
		Category:  "Flower",
		OnHand:    50,
		BasePrice: decimal.NewFromInt(45),
		Flavors:   []models.Flavor{{ID: "berry", Name: "Berry"}, {ID: "lime", Name: "Lime"}},
		Discount: &models.Discount{
			ID:   "d-1",
			Name: "Bulk flower",
			Lines: []models.DiscountLine{
				{ID: "dl-1", MinimumPurchase: 5, Value: "10", Type: models.DiscountTypePercentage},
			},
		},
	}
}

func preRolls() *models.Product {
	return &models.Product{
		ID:        "p-2",
		Name:      "Pre-roll 5pk",
		Category:  "Pre-rolls",
		OnHand:    20,
		BasePrice: decimal.NewFromInt(30),
	}
}

func newComposer(t *testing.T) *Composer {
	t.Helper()
	c := New(testSession)
	require.NoError(t, c.SelectCustomer(acme()))
	return c
}

func TestAddLineRequiresCustomer(t *testing.T) {
	c := New(testSession)

	err := c.AddLine(blueDream(), "", 1)

	assert.ErrorIs(t, err, ErrNoCustomer)
	assert.Empty(t, c.Order().Lines)
}

func TestAddLineValidation(t *testing.T) {
	zeroPrice := preRolls()
	zeroPrice.BasePrice = decimal.Zero

	zeroOffer := blueDream()
	offer := decimal.Zero
	zeroOffer.OfferPrice = &offer

	tests := []struct {
		name     string
		product  *models.Product
		flavor   string
		quantity int
		want     error
	}{
		{"no product", nil, "", 1, ErrNoProduct},
		{"zero quantity", blueDream(), "", 0, ErrInvalidQuantity},
		{"negative quantity", blueDream(), "", -3, ErrInvalidQuantity},
		{"over stock", blueDream(), "", 51, ErrCapacityExceeded},
		{"zero price", zeroPrice, "", 1, ErrInvalidPrice},
		{"zero offer price wins over base", zeroOffer, "", 1, ErrInvalidPrice},
		{"unknown flavor", blueDream(), "grape", 1, ErrUnknownFlavor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newComposer(t)
			err := c.AddLine(tt.product, tt.flavor, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))
			assert.Empty(t, c.Order().Lines)
		})
	}
}

func TestAddLineCapacityErrorDetails(t *testing.T) {
	c := newComposer(t)

	err := c.AddLine(blueDream(), "berry", 60)

	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "p-1", capErr.ProductID)
	assert.Equal(t, 60, capErr.Requested)
	assert.Equal(t, 50, capErr.Available)
}

func TestAddLineMergesSameProductAndFlavor(t *testing.T) {
	merged := newComposer(t)
	require.NoError(t, merged.AddLine(blueDream(), "berry", 3))
	require.NoError(t, merged.AddLine(blueDream(), "berry", 4))

	single := newComposer(t)
	require.NoError(t, single.AddLine(blueDream(), "berry", 7))

	got := merged.Order().Lines
	want := single.Order().Lines
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Quantity)
	assert.Equal(t, "315.00", got[0].Subtotal.StringFixed(2))
	require.NotNil(t, got[0].AppliedDiscount)
	assert.Equal(t, want, got)
}

func TestAddLineMergeRefreshesUnitPrice(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 3))

	repriced := blueDream()
	offer := decimal.NewFromInt(40)
	repriced.OfferPrice = &offer
	require.NoError(t, c.AddLine(repriced, "berry", 2))

	line := c.Order().Lines[0]
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "40.00", line.UnitPrice.StringFixed(2))
	assert.Equal(t, "200.00", line.Subtotal.StringFixed(2))
	assert.Equal(t, "20.00", line.DiscountAmount.StringFixed(2))
	assert.Equal(t, "180.00", line.FinalPrice.StringFixed(2))
}

func TestRefreshProduct(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 5))
	require.NoError(t, c.AddLine(blueDream(), "lime", 2))
	require.NoError(t, c.AddLine(preRolls(), "", 1))

	fresh := *blueDream()
	fresh.OnHand = 6
	fresh.BasePrice = decimal.NewFromInt(50)
	fresh.Discount = nil
	require.NoError(t, c.RefreshProduct(fresh))

	lines := c.Order().Lines
	assert.Equal(t, "250.00", lines[0].FinalPrice.StringFixed(2))
	assert.Nil(t, lines[0].AppliedDiscount)
	assert.Equal(t, "100.00", lines[1].FinalPrice.StringFixed(2))
	assert.Equal(t, "30.00", lines[2].FinalPrice.StringFixed(2))

	err := c.UpdateQuantity(0, 7)
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 6, capErr.Available)
}

func TestRefreshProductIgnoresUnusedOrUnpriced(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 5))
	before := c.Order()

	unused := *preRolls()
	require.NoError(t, c.RefreshProduct(unused))

	unpriced := *blueDream()
	unpriced.BasePrice = decimal.Zero
	require.NoError(t, c.RefreshProduct(unpriced))

	assert.Equal(t, before, c.Order())
}

func TestAddLineDifferentFlavorIsNewLine(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 2))
	require.NoError(t, c.AddLine(blueDream(), "lime", 2))
	require.NoError(t, c.AddLine(blueDream(), "", 2))

	lines := c.Order().Lines
	require.Len(t, lines, 3)
	assert.Equal(t, "Berry", lines[0].FlavorName)
	assert.Equal(t, "Lime", lines[1].FlavorName)
	assert.Empty(t, lines[2].FlavorID)
}

func TestAddLineMergeOverStockRejected(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 30))

	err := c.AddLine(blueDream(), "berry", 25)

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 30, c.Order().Lines[0].Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "", 2))
	assert.Nil(t, c.Order().Lines[0].AppliedDiscount)

	require.NoError(t, c.UpdateQuantity(0, 10))

	line := c.Order().Lines[0]
	assert.Equal(t, 10, line.Quantity)
	assert.Equal(t, "450.00", line.Subtotal.StringFixed(2))
	require.NotNil(t, line.AppliedDiscount)
	assert.Equal(t, "45.00", line.DiscountAmount.StringFixed(2))
	assert.Equal(t, "405.00", line.FinalPrice.StringFixed(2))
}

func TestUpdateQuantitySameValueIsNoop(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 6))
	before := c.Order().Lines[0]

	require.NoError(t, c.UpdateQuantity(0, before.Quantity))

	assert.Equal(t, before, c.Order().Lines[0])
}

func TestUpdateQuantityOverStockRejected(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "", 5))
	before := c.Order().Lines[0]

	err := c.UpdateQuantity(0, 51)

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, before, c.Order().Lines[0])
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "", 5))
	require.NoError(t, c.AddLine(preRolls(), "", 1))

	require.NoError(t, c.UpdateQuantity(0, 0))

	order := c.Order()
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "p-2", order.Lines[0].ProductID)
	assert.NotContains(t, order.Products, "p-1")
}

func TestUpdateQuantityUnknownIndex(t *testing.T) {
	c := newComposer(t)
	assert.ErrorIs(t, c.UpdateQuantity(0, 1), ErrLineNotFound)
	assert.ErrorIs(t, c.UpdateQuantity(-1, 1), ErrLineNotFound)
}

func TestUpdateQuantityLeavesOtherLines(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 5))
	require.NoError(t, c.AddLine(preRolls(), "", 3))
	other := c.Order().Lines[1]

	require.NoError(t, c.UpdateQuantity(0, 1))

	assert.Equal(t, other, c.Order().Lines[1])
}

func TestRemoveLine(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "berry", 5))
	require.NoError(t, c.AddLine(blueDream(), "lime", 5))
	kept := c.Order().Lines[1]

	require.NoError(t, c.RemoveLine(0))

	order := c.Order()
	require.Len(t, order.Lines, 1)
	assert.Equal(t, kept, order.Lines[0])
	assert.Contains(t, order.Products, "p-1")
	assert.ErrorIs(t, c.RemoveLine(3), ErrLineNotFound)
}

func TestShippingFeeAndNotes(t *testing.T) {
	c := newComposer(t)

	assert.ErrorIs(t, c.SetShippingFee(decimal.NewFromInt(-1)), ErrInvalidShippingFee)
	require.NoError(t, c.SetShippingFee(decimal.NewFromInt(15)))
	require.NoError(t, c.SetNotes("deliver before noon"))

	order := c.Order()
	assert.Equal(t, "15.00", order.ShippingFee.StringFixed(2))
	assert.Equal(t, "deliver before noon", order.Notes)
}

func TestEndToEndSingleDiscountedLine(t *testing.T) {
	c := newComposer(t)
	product := blueDream()
	product.Flavors = nil

	require.NoError(t, c.AddLine(product, "", 5))
	require.NoError(t, c.SetShippingFee(decimal.NewFromInt(15)))

	lines := c.Order().Lines
	require.Len(t, lines, 1)
	assert.Equal(t, "225.00", lines[0].Subtotal.StringFixed(2))
	assert.Equal(t, "22.50", lines[0].DiscountAmount.StringFixed(2))
	assert.Equal(t, "202.50", lines[0].FinalPrice.StringFixed(2))

	subtotal, grand := c.Totals()
	assert.Equal(t, "202.50", subtotal.StringFixed(2))
	assert.Equal(t, "217.50", grand.StringFixed(2))
}

func TestEndToEndMixedLines(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "lime", 8))
	require.NoError(t, c.AddLine(preRolls(), "", 3))

	lines := c.Order().Lines
	require.Len(t, lines, 2)
	assert.NotNil(t, lines[0].AppliedDiscount)
	assert.Equal(t, "36.00", lines[0].DiscountAmount.StringFixed(2))
	assert.Nil(t, lines[1].AppliedDiscount)
	assert.True(t, lines[1].DiscountAmount.IsZero())

	subtotal, grand := c.Totals()
	want := lines[0].FinalPrice.Add(lines[1].FinalPrice)
	assert.True(t, subtotal.Equal(want))
	assert.True(t, grand.Equal(want))
}

func TestRestoreKeepsDiscountResolution(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "", 2))

	restored := Restore(testSession, c.Order())
	require.NoError(t, restored.UpdateQuantity(0, 5))

	assert.NotNil(t, restored.Order().Lines[0].AppliedDiscount)
	assert.Nil(t, c.Order().Lines[0].AppliedDiscount)
}

func TestReset(t *testing.T) {
	c := newComposer(t)
	require.NoError(t, c.AddLine(blueDream(), "", 2))
	require.NoError(t, c.SetNotes("x"))

	c.Reset()

	order := c.Order()
	assert.Nil(t, order.Customer)
	assert.Empty(t, order.Lines)
	assert.Empty(t, order.Notes)
	assert.True(t, order.ShippingFee.IsZero())
}
