package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	data    map[string][]byte
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (m *memoryCache) GetCatalog(ctx context.Context, businessID, kind string, dst interface{}) (bool, error) {
	if m.failGet {
		return false, errors.New("redis down")
	}
	b, ok := m.data[businessID+":"+kind]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (m *memoryCache) SetCatalog(ctx context.Context, businessID, kind string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[businessID+":"+kind] = b
	return nil
}

type countingSource struct {
	calls    int
	products []models.Product
}

func (s *countingSource) Customers(ctx context.Context, businessID string) ([]models.Customer, error) {
	s.calls++
	return []models.Customer{{ID: "c-1"}}, nil
}

func (s *countingSource) Products(ctx context.Context, businessID string) ([]models.Product, error) {
	s.calls++
	return s.products, nil
}

func (s *countingSource) Location(ctx context.Context, businessID string) (*models.Location, error) {
	s.calls++
	return &models.Location{ID: "loc-1", Name: "North Warehouse"}, nil
}

func TestCachedCatalogReadThrough(t *testing.T) {
	offer := decimal.RequireFromString("40")
	source := &countingSource{products: []models.Product{
		{ID: "p-1", BasePrice: decimal.NewFromInt(45), OfferPrice: &offer, OnHand: 3},
	}}
	cached := NewCachedCatalog(source, newMemoryCache(), time.Minute)
	ctx := context.Background()

	first, err := cached.Products(ctx, "biz-1")
	require.NoError(t, err)
	second, err := cached.Products(ctx, "biz-1")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	require.NotNil(t, second[0].OfferPrice)
	assert.True(t, second[0].OfferPrice.Equal(offer))

	_, err = cached.Location(ctx, "biz-1")
	require.NoError(t, err)
	loc, err := cached.Location(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "North Warehouse", loc.Name)
	assert.Equal(t, 2, source.calls)
}

func TestCachedCatalogFallsBackOnCacheError(t *testing.T) {
	source := &countingSource{}
	cache := newMemoryCache()
	cache.failGet = true
	cached := NewCachedCatalog(source, cache, time.Minute)

	customers, err := cached.Customers(context.Background(), "biz-1")
	require.NoError(t, err)
	_, err = cached.Customers(context.Background(), "biz-1")
	require.NoError(t, err)

	assert.Len(t, customers, 1)
	assert.Equal(t, 2, source.calls)
}
