package composer

import (
	"context"
	"fmt"

	"order-composer/internal/models"
	"order-composer/internal/pricing"
)

// BuildSubmission assembles the payload for the current order
func (c *Composer) BuildSubmission(shipFrom models.Location, idempotencyKey string) (*models.OrderPayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buildSubmission(shipFrom, idempotencyKey)
}

// CheckSubmittable reports why the order cannot be submitted yet, if it cannot
func (c *Composer) CheckSubmittable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkSubmittable()
}

func (c *Composer) checkSubmittable() error {
	if c.order.Customer == nil {
		return ErrNoCustomer
	}
	if len(c.order.Lines) == 0 {
		return ErrNoLines
	}
	return nil
}

func (c *Composer) buildSubmission(shipFrom models.Location, idempotencyKey string) (*models.OrderPayload, error) {
	if err := c.checkSubmittable(); err != nil {
		return nil, err
	}
	cust := c.order.Customer

	lines := make([]models.OrderLine, len(c.order.Lines))
	copy(lines, c.order.Lines)
	subtotal, grandTotal := pricing.Totals(lines, c.order.ShippingFee)

	return &models.OrderPayload{
		BusinessID:      c.session.BusinessID,
		UserID:          c.session.UserID,
		IdempotencyKey:  idempotencyKey,
		CustomerID:      cust.ID,
		CustomerName:    cust.DisplayName,
		CompanyName:     cust.CompanyName,
		ContactName:     cust.ContactName,
		Email:           cust.Email,
		Phone:           cust.Phone,
		BillingAddress:  cust.BillingAddress,
		ShippingAddress: cust.ShipTo(),
		ShipTo:          formatShipTo(*cust),
		ShipFrom:        formatShipFrom(shipFrom),
		Lines:           lines,
		Subtotal:        subtotal,
		ShippingFee:     c.order.ShippingFee.Round(2),
		GrandTotal:      grandTotal,
		Notes:           c.order.Notes,
	}, nil
}

// Submit sends the order through submitter. Only one submission may be
// outstanding; the order is reset on success and left as-is on failure.
func (c *Composer) Submit(ctx context.Context, shipFrom models.Location, idempotencyKey string, submitter Submitter) (*Receipt, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	payload, err := c.buildSubmission(shipFrom, idempotencyKey)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.busy = true
	c.mu.Unlock()

	result, err := submitter.SubmitOrder(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err != nil {
		return nil, &SubmissionError{Reason: err.Error(), Err: err}
	}
	if result == nil || !result.Success {
		reason := "order service rejected the order"
		if result != nil && result.Message != "" {
			reason = result.Message
		}
		return nil, &SubmissionError{Reason: reason}
	}

	c.order = emptyOrder()
	return &Receipt{Payload: payload, Result: result}, nil
}

func formatShipTo(c models.Customer) string {
	name := c.CompanyName
	if name == "" {
		name = c.DisplayName
	}
	return joinNonEmpty(name, c.ShipTo().Format())
}

func formatShipFrom(l models.Location) string {
	return joinNonEmpty(l.Name, l.Address.Format())
}

func joinNonEmpty(head, tail string) string {
	switch {
	case head == "":
		return tail
	case tail == "":
		return head
	default:
		return fmt.Sprintf("%s, %s", head, tail)
	}
}
