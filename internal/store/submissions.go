package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"order-composer/internal/models"
)

// ErrNotFound is returned when no submission matches
var ErrNotFound = errors.New("submission not found")

const submissionColumns = `id, idempotency_key, business_id, user_id, customer_id, subtotal, shipping_fee,
	grand_total, line_count, status, message, external_id, payload, created_at, updated_at`

// CreateSubmission records a new submission attempt
func (s *Store) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO order_submissions
			(idempotency_key, business_id, user_id, customer_id, subtotal, shipping_fee,
			 grand_total, line_count, status, message, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, sub, query,
		sub.IdempotencyKey, sub.BusinessID, sub.UserID, sub.CustomerID, sub.Subtotal,
		sub.ShippingFee, sub.GrandTotal, sub.LineCount, sub.Status, sub.Message, string(sub.Payload))
}

// GetSubmissionByID retrieves a submission by ID
func (s *Store) GetSubmissionByID(ctx context.Context, id int64) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.GetContext(ctx, &sub,
		"SELECT "+submissionColumns+" FROM order_submissions WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubmissionByIdempotencyKey retrieves the session's submission for key, nil if none
func (s *Store) GetSubmissionByIdempotencyKey(ctx context.Context, session models.Session, key string) (*models.Submission, error) {
	var sub models.Submission
	err := s.db.GetContext(ctx, &sub,
		"SELECT "+submissionColumns+" FROM order_submissions WHERE business_id = $1 AND user_id = $2 AND idempotency_key = $3",
		session.BusinessID, session.UserID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ReopenSubmission puts a failed submission back to PENDING with the figures of a new attempt
func (s *Store) ReopenSubmission(ctx context.Context, id int64, sub *models.Submission) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_submissions
		 SET customer_id = $1, subtotal = $2, shipping_fee = $3, grand_total = $4, line_count = $5,
		     payload = $6::jsonb, status = $7, message = '', external_id = '', updated_at = NOW()
		 WHERE id = $8`,
		sub.CustomerID, sub.Subtotal, sub.ShippingFee, sub.GrandTotal, sub.LineCount,
		string(sub.Payload), models.SubmissionStatusPending, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	sub.ID = id
	sub.Status = models.SubmissionStatusPending
	return nil
}

// UpdateSubmissionStatus sets the outcome of a submission
func (s *Store) UpdateSubmissionStatus(ctx context.Context, id int64, status, message, externalID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_submissions
		 SET status = $1, message = $2, external_id = $3, updated_at = NOW()
		 WHERE id = $4`,
		status, message, externalID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// GetSubmissionsByBusiness lists the most recent submissions of a business
func (s *Store) GetSubmissionsByBusiness(ctx context.Context, businessID string, limit int) ([]models.Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	subs := []models.Submission{}
	err := s.db.SelectContext(ctx, &subs,
		"SELECT "+submissionColumns+" FROM order_submissions WHERE business_id = $1 ORDER BY created_at DESC LIMIT $2",
		businessID, limit)
	return subs, err
}
