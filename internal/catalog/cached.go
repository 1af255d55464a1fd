package catalog

import (
	"context"
	"time"

	"order-composer/internal/models"
	"order-composer/internal/util"

	"go.uber.org/zap"
)

// Source is where catalog data ultimately comes from
type Source interface {
	Customers(ctx context.Context, businessID string) ([]models.Customer, error)
	Products(ctx context.Context, businessID string) ([]models.Product, error)
	Location(ctx context.Context, businessID string) (*models.Location, error)
}

// Cache stores catalog lists per business and kind
type Cache interface {
	GetCatalog(ctx context.Context, businessID, kind string, dst interface{}) (bool, error)
	SetCatalog(ctx context.Context, businessID, kind string, value interface{}, ttl time.Duration) error
}

// CachedCatalog serves catalog reads from the cache and falls back to the source.
// Cache failures are logged and never fail a read.
type CachedCatalog struct {
	source Source
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps source with a read-through cache
func NewCachedCatalog(source Source, cache Cache, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

func (cc *CachedCatalog) Customers(ctx context.Context, businessID string) ([]models.Customer, error) {
	var customers []models.Customer
	if cc.lookup(ctx, businessID, models.CatalogKindCustomers, &customers) {
		return customers, nil
	}

	customers, err := cc.source.Customers(ctx, businessID)
	if err != nil {
		return nil, err
	}
	cc.store(ctx, businessID, models.CatalogKindCustomers, customers)
	return customers, nil
}

func (cc *CachedCatalog) Products(ctx context.Context, businessID string) ([]models.Product, error) {
	var products []models.Product
	if cc.lookup(ctx, businessID, models.CatalogKindProducts, &products) {
		return products, nil
	}

	products, err := cc.source.Products(ctx, businessID)
	if err != nil {
		return nil, err
	}
	cc.store(ctx, businessID, models.CatalogKindProducts, products)
	return products, nil
}

func (cc *CachedCatalog) Location(ctx context.Context, businessID string) (*models.Location, error) {
	var loc models.Location
	if cc.lookup(ctx, businessID, models.CatalogKindLocation, &loc) {
		return &loc, nil
	}

	fetched, err := cc.source.Location(ctx, businessID)
	if err != nil {
		return nil, err
	}
	cc.store(ctx, businessID, models.CatalogKindLocation, fetched)
	return fetched, nil
}

func (cc *CachedCatalog) lookup(ctx context.Context, businessID, kind string, dst interface{}) bool {
	hit, err := cc.cache.GetCatalog(ctx, businessID, kind, dst)
	if err != nil {
		cc.logger.Warn("Catalog cache read failed, falling back to catalog service",
			zap.String("business_id", businessID),
			zap.String("kind", kind),
			zap.Error(err))
		util.CatalogCacheResultsTotal.WithLabelValues(kind, "error").Inc()
		return false
	}
	if !hit {
		util.CatalogCacheResultsTotal.WithLabelValues(kind, "miss").Inc()
		return false
	}
	util.CatalogCacheResultsTotal.WithLabelValues(kind, "hit").Inc()
	return true
}

func (cc *CachedCatalog) store(ctx context.Context, businessID, kind string, value interface{}) {
	if err := cc.cache.SetCatalog(ctx, businessID, kind, value, cc.ttl); err != nil {
		cc.logger.Error("Failed to populate catalog cache",
			zap.String("business_id", businessID),
			zap.String("kind", kind),
			zap.Error(err))
	}
}
