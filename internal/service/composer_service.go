package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-composer/internal/composer"
	"order-composer/internal/models"
	"order-composer/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrProductNotFound  = errors.New("product not found")
)

// DraftStore keeps each session's in-progress order between requests
type DraftStore interface {
	LoadDraft(ctx context.Context, s models.Session) (*models.Order, error)
	SaveDraft(ctx context.Context, s models.Session, order models.Order, ttl time.Duration) error
	DeleteDraft(ctx context.Context, s models.Session) error
}

// Catalog provides the read-only collaborator data
type Catalog interface {
	Customers(ctx context.Context, businessID string) ([]models.Customer, error)
	Products(ctx context.Context, businessID string) ([]models.Product, error)
	Location(ctx context.Context, businessID string) (*models.Location, error)
}

// Ledger records submission attempts
type Ledger interface {
	CreateSubmission(ctx context.Context, sub *models.Submission) error
	GetSubmissionByIdempotencyKey(ctx context.Context, s models.Session, key string) (*models.Submission, error)
	ReopenSubmission(ctx context.Context, id int64, sub *models.Submission) error
	UpdateSubmissionStatus(ctx context.Context, id int64, status, message, externalID string) error
	GetSubmissionsByBusiness(ctx context.Context, businessID string, limit int) ([]models.Submission, error)
}

// Publisher emits order events
type Publisher interface {
	PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error
	PublishOrderSubmissionFailed(ctx context.Context, event *models.OrderSubmissionFailedEvent) error
}

// Locker guards one in-flight submission per session across instances
type Locker interface {
	AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
	IsLocked(ctx context.Context, lockKey string) (bool, error)
}

// Options tunes the service
type Options struct {
	DraftTTL      time.Duration
	SubmitLockTTL time.Duration
}

// ComposerService runs order composition for many sessions
type ComposerService struct {
	drafts    DraftStore
	catalog   Catalog
	submitter composer.Submitter
	ledger    Ledger
	publisher Publisher
	locker    Locker
	opts      Options
	logger    *zap.Logger
}

// NewComposerService creates a new composer service
func NewComposerService(
	drafts DraftStore,
	catalog Catalog,
	submitter composer.Submitter,
	ledger Ledger,
	publisher Publisher,
	locker Locker,
	opts Options,
) *ComposerService {
	return &ComposerService{
		drafts:    drafts,
		catalog:   catalog,
		submitter: submitter,
		ledger:    ledger,
		publisher: publisher,
		locker:    locker,
		opts:      opts,
		logger:    util.GetLogger(),
	}
}

// DraftView is the in-progress order with its derived totals
type DraftView struct {
	Customer    *models.Customer   `json:"customer"`
	Lines       []models.OrderLine `json:"lines"`
	ShippingFee decimal.Decimal    `json:"shipping_fee"`
	Notes       string             `json:"notes"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	GrandTotal  decimal.Decimal    `json:"grand_total"`
	Submitting  bool               `json:"submitting"`
}

// AddLineRequest selects a product, flavor and quantity to add
type AddLineRequest struct {
	ProductID string `json:"product_id"`
	FlavorID  string `json:"flavor_id"`
	Quantity  int    `json:"quantity"`
}

func submitLockKey(s models.Session) string {
	return fmt.Sprintf("submit:%s:%s", s.BusinessID, s.UserID)
}

// GetDraft returns the session's in-progress order
func (s *ComposerService) GetDraft(ctx context.Context, session models.Session) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.GetDraft")
	defer span.End()

	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	busy, err := s.locker.IsLocked(ctx, submitLockKey(session))
	if err != nil {
		s.logger.Warn("Failed to check submission lock", zap.Error(err))
	}
	return view(c, busy), nil
}

// SelectCustomer sets the order's customer by id
func (s *ComposerService) SelectCustomer(ctx context.Context, session models.Session, customerID string) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.SelectCustomer")
	defer span.End()

	customers, err := s.catalog.Customers(ctx, session.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	var selected *models.Customer
	for i := range customers {
		if customers[i].ID == customerID {
			selected = &customers[i]
			break
		}
	}
	if selected == nil {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}

	return s.mutate(ctx, session, "select_customer", func(c *composer.Composer) error {
		return c.SelectCustomer(*selected)
	})
}

// AddLine adds a product line to the order
func (s *ComposerService) AddLine(ctx context.Context, session models.Session, req AddLineRequest) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.AddLine")
	defer span.End()

	var product *models.Product
	if req.ProductID != "" {
		products, err := s.catalog.Products(ctx, session.BusinessID)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for i := range products {
			if products[i].ID == req.ProductID {
				product = &products[i]
				break
			}
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
		}
	}

	v, err := s.mutate(ctx, session, "add_line", func(c *composer.Composer) error {
		return c.AddLine(product, req.FlavorID, req.Quantity)
	})
	if err == nil {
		util.DraftLinesAddedTotal.Inc()
	}
	return v, err
}

// UpdateQuantity changes the quantity of a line; zero or less removes it.
// The line's product is repriced from the current catalog before the stock check.
func (s *ComposerService) UpdateQuantity(ctx context.Context, session models.Session, index, quantity int) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.UpdateQuantity")
	defer span.End()

	return s.mutate(ctx, session, "update_quantity", func(c *composer.Composer) error {
		if quantity > 0 {
			if err := s.refreshLineProduct(ctx, session, c, index); err != nil {
				return err
			}
		}
		return c.UpdateQuantity(index, quantity)
	})
}

// refreshLineProduct falls back to the saved snapshot when the catalog
// is unavailable or no longer lists the product.
func (s *ComposerService) refreshLineProduct(ctx context.Context, session models.Session, c *composer.Composer, index int) error {
	lines := c.Order().Lines
	if index < 0 || index >= len(lines) {
		return nil
	}
	productID := lines[index].ProductID

	products, err := s.catalog.Products(ctx, session.BusinessID)
	if err != nil {
		s.logger.Warn("Catalog unavailable, using saved product snapshot",
			zap.String("product_id", productID),
			zap.Error(err))
		return nil
	}
	for _, p := range products {
		if p.ID == productID {
			return c.RefreshProduct(p)
		}
	}
	return nil
}

// RemoveLine drops a line from the order
func (s *ComposerService) RemoveLine(ctx context.Context, session models.Session, index int) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.RemoveLine")
	defer span.End()

	return s.mutate(ctx, session, "remove_line", func(c *composer.Composer) error {
		return c.RemoveLine(index)
	})
}

// SetShippingFee sets the order's shipping fee
func (s *ComposerService) SetShippingFee(ctx context.Context, session models.Session, fee decimal.Decimal) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.SetShippingFee")
	defer span.End()

	return s.mutate(ctx, session, "set_shipping_fee", func(c *composer.Composer) error {
		return c.SetShippingFee(fee)
	})
}

// SetNotes sets the order's notes
func (s *ComposerService) SetNotes(ctx context.Context, session models.Session, notes string) (*DraftView, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.SetNotes")
	defer span.End()

	return s.mutate(ctx, session, "set_notes", func(c *composer.Composer) error {
		return c.SetNotes(notes)
	})
}

// DiscardDraft drops the in-progress order without submitting it
func (s *ComposerService) DiscardDraft(ctx context.Context, session models.Session) error {
	ctx, span := util.StartSpan(ctx, "ComposerService.DiscardDraft")
	defer span.End()

	if err := s.ensureIdle(ctx, session); err != nil {
		return err
	}
	if err := s.drafts.DeleteDraft(ctx, session); err != nil {
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	util.DraftsDiscardedTotal.Inc()
	s.logger.Info("Draft discarded",
		zap.String("business_id", session.BusinessID),
		zap.String("user_id", session.UserID))
	return nil
}

// ListCustomers returns the customers the session can order for
func (s *ComposerService) ListCustomers(ctx context.Context, session models.Session) ([]models.Customer, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.ListCustomers")
	defer span.End()
	return s.catalog.Customers(ctx, session.BusinessID)
}

// ListProducts returns the products the session can order
func (s *ComposerService) ListProducts(ctx context.Context, session models.Session) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.ListProducts")
	defer span.End()
	return s.catalog.Products(ctx, session.BusinessID)
}

// ListSubmissions returns recent submission attempts for the business
func (s *ComposerService) ListSubmissions(ctx context.Context, session models.Session, limit int) ([]models.Submission, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.ListSubmissions")
	defer span.End()
	return s.ledger.GetSubmissionsByBusiness(ctx, session.BusinessID, limit)
}

// mutate loads the session's draft, applies fn and saves the result.
// A rejected fn leaves the stored draft untouched.
func (s *ComposerService) mutate(ctx context.Context, session models.Session, op string, fn func(*composer.Composer) error) (*DraftView, error) {
	if err := s.ensureIdle(ctx, session); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		if composer.IsValidation(err) {
			util.DraftValidationFailedTotal.WithLabelValues(validationReason(err)).Inc()
			s.logger.Debug("Draft operation rejected",
				zap.String("op", op),
				zap.String("business_id", session.BusinessID),
				zap.Error(err))
		}
		return nil, err
	}

	if err := s.drafts.SaveDraft(ctx, session, c.Order(), s.opts.DraftTTL); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return view(c, false), nil
}

func (s *ComposerService) ensureIdle(ctx context.Context, session models.Session) error {
	busy, err := s.locker.IsLocked(ctx, submitLockKey(session))
	if err != nil {
		return fmt.Errorf("failed to check submission lock: %w", err)
	}
	if busy {
		return composer.ErrSubmissionInProgress
	}
	return nil
}

func (s *ComposerService) load(ctx context.Context, session models.Session) (*composer.Composer, error) {
	order, err := s.drafts.LoadDraft(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if order == nil {
		return composer.New(session), nil
	}
	return composer.Restore(session, *order), nil
}

func view(c *composer.Composer, busy bool) *DraftView {
	order := c.Order()
	subtotal, grand := c.Totals()
	return &DraftView{
		Customer:    order.Customer,
		Lines:       order.Lines,
		ShippingFee: order.ShippingFee,
		Notes:       order.Notes,
		Subtotal:    subtotal,
		GrandTotal:  grand,
		Submitting:  busy || c.Busy(),
	}
}

func validationReason(err error) string {
	switch {
	case errors.Is(err, composer.ErrNoCustomer):
		return "no_customer"
	case errors.Is(err, composer.ErrNoProduct):
		return "no_product"
	case errors.Is(err, composer.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, composer.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, composer.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, composer.ErrUnknownFlavor):
		return "unknown_flavor"
	case errors.Is(err, composer.ErrInvalidShippingFee):
		return "invalid_shipping_fee"
	case errors.Is(err, composer.ErrNoLines):
		return "no_lines"
	case errors.Is(err, composer.ErrLineNotFound):
		return "line_not_found"
	default:
		return "other"
	}
}
