package worker

import (
	"context"
	"fmt"

	"order-composer/internal/broker"
	"order-composer/internal/models"
	"order-composer/internal/util"

	"go.uber.org/zap"
)

// CacheInvalidator drops cached catalog data for a business
type CacheInvalidator interface {
	InvalidateCatalog(ctx context.Context, businessID string, kinds ...string) error
}

// CatalogWorker keeps the catalog cache in step with upstream catalog changes
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        CacheInvalidator
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, cache CacheInvalidator) *CatalogWorker {
	w := &CatalogWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnCatalogUpdated(w.HandleCatalogUpdated)
	return w
}

// Start consumes catalog events until ctx is done
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker")
	return w.consumer.Close()
}

// HandleCatalogUpdated invalidates the cached catalog kinds named by the event
func (w *CatalogWorker) HandleCatalogUpdated(ctx context.Context, event *models.CatalogUpdatedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogWorker.HandleCatalogUpdated")
	defer span.End()

	if event.BusinessID == "" {
		w.logger.Warn("Catalog event without business id", zap.String("event_id", event.EventID))
		return nil
	}

	if err := w.cache.InvalidateCatalog(ctx, event.BusinessID, event.Kinds...); err != nil {
		util.RecordError(span, err)
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}

	w.logger.Info("Catalog cache invalidated",
		zap.String("business_id", event.BusinessID),
		zap.Strings("kinds", event.Kinds))
	return nil
}
