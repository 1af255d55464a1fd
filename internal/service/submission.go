package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-composer/internal/composer"
	"order-composer/internal/models"
	"order-composer/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitResponse is the outcome of a successful submission
type SubmitResponse struct {
	OrderID        string               `json:"order_id"`
	Message        string               `json:"message"`
	IdempotencyKey string               `json:"idempotency_key"`
	Duplicate      bool                 `json:"duplicate"`
	Order          *models.OrderPayload `json:"order,omitempty"`
}

// SubmitDraft assembles the session's order and hands it to the order service.
// The draft is cleared on success and kept on failure so it can be retried.
func (s *ComposerService) SubmitDraft(ctx context.Context, session models.Session, idempotencyKey string) (*SubmitResponse, error) {
	ctx, span := util.StartSpan(ctx, "ComposerService.SubmitDraft")
	defer span.End()

	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	existing, err := s.ledger.GetSubmissionByIdempotencyKey(ctx, session, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check submission ledger: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case models.SubmissionStatusSubmitted:
			s.logger.Info("Duplicate submission",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("order_id", existing.ExternalID))
			return &SubmitResponse{
				OrderID:        existing.ExternalID,
				Message:        existing.Message,
				IdempotencyKey: idempotencyKey,
				Duplicate:      true,
			}, nil
		case models.SubmissionStatusPending:
			return nil, composer.ErrSubmissionInProgress
		}
	}

	lockKey := submitLockKey(session)
	token := uuid.New().String()
	locked, err := s.locker.AcquireLock(ctx, lockKey, token, s.opts.SubmitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submission lock: %w", err)
	}
	if !locked {
		return nil, composer.ErrSubmissionInProgress
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release submission lock", zap.String("key", lockKey), zap.Error(err))
		}
	}()

	c, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := c.CheckSubmittable(); err != nil {
		util.DraftValidationFailedTotal.WithLabelValues(validationReason(err)).Inc()
		return nil, err
	}

	loc, err := s.catalog.Location(ctx, session.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ship-from location: %w", err)
	}
	var shipFrom models.Location
	if loc != nil {
		shipFrom = *loc
	}

	recorder := &ledgerSubmitter{next: s.submitter, ledger: s.ledger, existing: existing}

	start := time.Now()
	receipt, err := c.Submit(ctx, shipFrom, idempotencyKey, recorder)
	if err != nil {
		if composer.IsValidation(err) {
			util.DraftValidationFailedTotal.WithLabelValues(validationReason(err)).Inc()
			return nil, err
		}
		util.OrderSubmissionLatency.Observe(time.Since(start).Seconds())
		s.recordFailure(ctx, session, idempotencyKey, recorder.id, err)
		util.RecordError(span, err)
		return nil, err
	}
	util.OrderSubmissionLatency.Observe(time.Since(start).Seconds())

	result := receipt.Result
	if err := s.ledger.UpdateSubmissionStatus(ctx, recorder.id, models.SubmissionStatusSubmitted, result.Message, result.OrderID); err != nil {
		s.logger.Error("Failed to mark submission as submitted",
			zap.Int64("submission_id", recorder.id),
			zap.Error(err))
	}
	util.OrdersSubmittedTotal.Inc()

	if err := s.drafts.DeleteDraft(ctx, session); err != nil {
		s.logger.Error("Failed to clear submitted draft", zap.Error(err))
	}

	if err := s.publisher.PublishOrderSubmitted(ctx, submittedEvent(receipt)); err != nil {
		s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}

	s.logger.Info("Order submitted",
		zap.String("business_id", session.BusinessID),
		zap.String("idempotency_key", idempotencyKey),
		zap.String("order_id", result.OrderID),
		zap.String("grand_total", receipt.Payload.GrandTotal.StringFixed(2)))

	return &SubmitResponse{
		OrderID:        result.OrderID,
		Message:        result.Message,
		IdempotencyKey: idempotencyKey,
		Order:          receipt.Payload,
	}, nil
}

func (s *ComposerService) recordFailure(ctx context.Context, session models.Session, key string, submissionID int64, err error) {
	reason := err.Error()
	label := "error"
	var se *composer.SubmissionError
	if errors.As(err, &se) {
		reason = se.Reason
		if se.Err == nil {
			label = "rejected"
		}
	}
	util.OrdersSubmissionFailedTotal.WithLabelValues(label).Inc()

	if submissionID != 0 {
		if uerr := s.ledger.UpdateSubmissionStatus(ctx, submissionID, models.SubmissionStatusFailed, reason, ""); uerr != nil {
			s.logger.Error("Failed to mark submission as failed",
				zap.Int64("submission_id", submissionID),
				zap.Error(uerr))
		}
	}

	event := &models.OrderSubmissionFailedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeOrderSubmissionFailed),
		BusinessID:     session.BusinessID,
		UserID:         session.UserID,
		IdempotencyKey: key,
		Reason:         reason,
	}
	if perr := s.publisher.PublishOrderSubmissionFailed(ctx, event); perr != nil {
		s.logger.Error("Failed to publish OrderSubmissionFailed event", zap.Error(perr))
	}

	s.logger.Warn("Order submission failed",
		zap.String("business_id", session.BusinessID),
		zap.String("idempotency_key", key),
		zap.String("reason", reason))
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func submittedEvent(r *composer.Receipt) *models.OrderSubmittedEvent {
	lines := make([]models.OrderLineData, len(r.Payload.Lines))
	for i, l := range r.Payload.Lines {
		lines[i] = models.OrderLineData{
			ProductID:      l.ProductID,
			FlavorID:       l.FlavorID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
			FinalPrice:     l.FinalPrice,
		}
	}
	return &models.OrderSubmittedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeOrderSubmitted),
		BusinessID:     r.Payload.BusinessID,
		UserID:         r.Payload.UserID,
		CustomerID:     r.Payload.CustomerID,
		IdempotencyKey: r.Payload.IdempotencyKey,
		ExternalID:     r.Result.OrderID,
		GrandTotal:     r.Payload.GrandTotal,
		Lines:          lines,
	}
}

// ledgerSubmitter records a PENDING ledger entry right before the
// order service is called. A previously FAILED entry for the same key
// is reopened with the figures of this attempt.
type ledgerSubmitter struct {
	next     composer.Submitter
	ledger   Ledger
	existing *models.Submission
	id       int64
}

func (ls *ledgerSubmitter) SubmitOrder(ctx context.Context, payload *models.OrderPayload) (*models.SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	sub := &models.Submission{
		IdempotencyKey: payload.IdempotencyKey,
		BusinessID:     payload.BusinessID,
		UserID:         payload.UserID,
		CustomerID:     payload.CustomerID,
		Subtotal:       payload.Subtotal,
		ShippingFee:    payload.ShippingFee,
		GrandTotal:     payload.GrandTotal,
		LineCount:      len(payload.Lines),
		Status:         models.SubmissionStatusPending,
		Payload:        body,
	}

	if ls.existing != nil {
		if err := ls.ledger.ReopenSubmission(ctx, ls.existing.ID, sub); err != nil {
			return nil, fmt.Errorf("failed to reopen submission: %w", err)
		}
	} else if err := ls.ledger.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}
	ls.id = sub.ID

	return ls.next.SubmitOrder(ctx, payload)
}
