package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("Integration test - set REDIS_TEST_ADDR")
	}
	c, err := NewClient(addr, "", 15)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDraftRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	s := models.Session{BusinessID: "biz-test", UserID: "u-1"}
	defer c.DeleteDraft(ctx, s)

	order := models.Order{
		Customer:    &models.Customer{ID: "c-1"},
		ShippingFee: decimal.NewFromInt(15),
		Notes:       "dock 4",
	}
	require.NoError(t, c.SaveDraft(ctx, s, order, time.Minute))

	got, err := c.LoadDraft(ctx, s)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-1", got.Customer.ID)
	assert.True(t, got.ShippingFee.Equal(order.ShippingFee))

	require.NoError(t, c.DeleteDraft(ctx, s))
	got, err = c.LoadDraft(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLockIsExclusive(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "submit:test", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.AcquireLock(ctx, "submit:test", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "submit:test", "b"))
	ok, _ = c.AcquireLock(ctx, "submit:test", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "submit:test", "a"))
	ok, err = c.AcquireLock(ctx, "submit:test", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.ReleaseLock(ctx, "submit:test", "b"))
}

func TestCatalogInvalidate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetCatalog(ctx, "biz-test", models.CatalogKindProducts, []models.Product{{ID: "p-1"}}, time.Minute))
	var products []models.Product
	hit, err := c.GetCatalog(ctx, "biz-test", models.CatalogKindProducts, &products)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, c.InvalidateCatalog(ctx, "biz-test"))
	hit, err = c.GetCatalog(ctx, "biz-test", models.CatalogKindProducts, &products)
	require.NoError(t, err)
	assert.False(t, hit)
}
