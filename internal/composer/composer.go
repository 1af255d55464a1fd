package composer

import (
	"context"
	"sync"

	"order-composer/internal/models"
	"order-composer/internal/pricing"

	"github.com/shopspring/decimal"
)

// Submitter hands an assembled order to the order service
type Submitter interface {
	SubmitOrder(ctx context.Context, payload *models.OrderPayload) (*models.SubmitResult, error)
}

// Receipt is what a successful submission returns
type Receipt struct {
	Payload *models.OrderPayload
	Result  *models.SubmitResult
}

// Composer holds the single in-progress order of one session
type Composer struct {
	mu      sync.Mutex
	session models.Session
	order   models.Order
	busy    bool
}

// New creates a composer with an empty order
func New(session models.Session) *Composer {
	return &Composer{
		session: session,
		order:   emptyOrder(),
	}
}

// Restore creates a composer around a previously saved order
func Restore(session models.Session, order models.Order) *Composer {
	c := New(session)
	c.order = copyOrder(order)
	if c.order.Products == nil {
		c.order.Products = make(map[string]models.Product)
	}
	return c
}

func emptyOrder() models.Order {
	return models.Order{
		Lines:       []models.OrderLine{},
		ShippingFee: decimal.Zero,
		Products:    make(map[string]models.Product),
	}
}

// Session returns who owns this order
func (c *Composer) Session() models.Session {
	return c.session
}

// Order returns a copy of the in-progress order
func (c *Composer) Order() models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyOrder(c.order)
}

// Busy reports whether a submission is outstanding
func (c *Composer) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// SelectCustomer sets the customer the order is for
func (c *Composer) SelectCustomer(customer models.Customer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	c.order.Customer = &customer
	return nil
}

// SetShippingFee sets the order-level shipping fee
func (c *Composer) SetShippingFee(fee decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	if fee.IsNegative() {
		return ErrInvalidShippingFee
	}
	c.order.ShippingFee = fee
	return nil
}

// SetNotes replaces the order notes
func (c *Composer) SetNotes(notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	c.order.Notes = notes
	return nil
}

// AddLine adds quantity of product (optionally a flavor of it) to the order.
// An existing line for the same product and flavor has its quantity increased instead.
func (c *Composer) AddLine(product *models.Product, flavorID string, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	if c.order.Customer == nil {
		return ErrNoCustomer
	}
	if product == nil || product.ID == "" {
		return ErrNoProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if quantity > product.OnHand {
		return &CapacityError{ProductID: product.ID, Requested: quantity, Available: product.OnHand}
	}
	if !pricing.UnitPrice(*product).IsPositive() {
		return ErrInvalidPrice
	}

	var flavor *models.Flavor
	if flavorID != "" {
		f, ok := product.FindFlavor(flavorID)
		if !ok {
			return ErrUnknownFlavor
		}
		flavor = &f
	}

	if i := c.indexOf(product.ID, flavorID); i >= 0 {
		line := c.order.Lines[i]
		merged := line.Quantity + quantity
		if merged > product.OnHand {
			return &CapacityError{ProductID: product.ID, Requested: merged, Available: product.OnHand}
		}
		line.Quantity = merged
		line.UnitPrice = pricing.UnitPrice(*product)
		c.order.Products[product.ID] = *product
		c.order.Lines[i] = pricing.RecomputeLine(line, *product)
		return nil
	}

	c.order.Products[product.ID] = *product
	c.order.Lines = append(c.order.Lines, pricing.NewLine(*product, flavor, quantity))
	return nil
}

// UpdateQuantity sets the quantity of the line at index. Zero or less removes it.
func (c *Composer) UpdateQuantity(index, quantity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	if index < 0 || index >= len(c.order.Lines) {
		return ErrLineNotFound
	}
	if quantity <= 0 {
		c.removeAt(index)
		return nil
	}

	line := c.order.Lines[index]
	product := c.productFor(line)
	if quantity > product.OnHand {
		return &CapacityError{ProductID: line.ProductID, Requested: quantity, Available: product.OnHand}
	}

	line.Quantity = quantity
	c.order.Lines[index] = pricing.RecomputeLine(line, product)
	return nil
}

// RefreshProduct replaces the snapshot the product's lines are priced from and
// reprices them. Stock is not rechecked here; the next quantity change is.
// A product without a valid price, or with no lines in the order, is ignored.
func (c *Composer) RefreshProduct(product models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	if _, ok := c.order.Products[product.ID]; !ok {
		return nil
	}
	price := pricing.UnitPrice(product)
	if !price.IsPositive() {
		return nil
	}

	c.order.Products[product.ID] = product
	for i, line := range c.order.Lines {
		if line.ProductID != product.ID {
			continue
		}
		line.UnitPrice = price
		c.order.Lines[i] = pricing.RecomputeLine(line, product)
	}
	return nil
}

// RemoveLine drops the line at index
func (c *Composer) RemoveLine(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrSubmissionInProgress
	}
	if index < 0 || index >= len(c.order.Lines) {
		return ErrLineNotFound
	}
	c.removeAt(index)
	return nil
}

// Totals returns the post-discount subtotal and the grand total with shipping
func (c *Composer) Totals() (subtotal, grandTotal decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pricing.Totals(c.order.Lines, c.order.ShippingFee)
}

// Reset empties the order
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = emptyOrder()
}

func (c *Composer) indexOf(productID, flavorID string) int {
	for i, l := range c.order.Lines {
		if l.ProductID == productID && l.FlavorID == flavorID {
			return i
		}
	}
	return -1
}

func (c *Composer) removeAt(index int) {
	productID := c.order.Lines[index].ProductID
	c.order.Lines = append(c.order.Lines[:index], c.order.Lines[index+1:]...)

	for _, l := range c.order.Lines {
		if l.ProductID == productID {
			return
		}
	}
	delete(c.order.Products, productID)
}

// productFor returns the snapshot a line was priced from. Lines restored
// without a snapshot keep their current quantity as the stock ceiling and
// lose their discount on the next recompute.
func (c *Composer) productFor(line models.OrderLine) models.Product {
	if p, ok := c.order.Products[line.ProductID]; ok {
		return p
	}
	return models.Product{
		ID:        line.ProductID,
		Name:      line.ProductName,
		Category:  line.Category,
		OnHand:    line.Quantity,
		BasePrice: line.UnitPrice,
	}
}

func copyOrder(o models.Order) models.Order {
	out := o
	if o.Customer != nil {
		cust := *o.Customer
		out.Customer = &cust
	}
	out.Lines = make([]models.OrderLine, len(o.Lines))
	copy(out.Lines, o.Lines)
	out.Products = make(map[string]models.Product, len(o.Products))
	for k, v := range o.Products {
		out.Products[k] = v
	}
	return out
}
