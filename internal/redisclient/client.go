package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"order-composer/internal/models"

	"github.com/go-redis/redis/v8"
)

// releaseLockScript deletes the lock only if it still holds our token
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var catalogKinds = []string{
	models.CatalogKindCustomers,
	models.CatalogKindProducts,
	models.CatalogKindLocation,
}

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func draftKey(s models.Session) string {
	return fmt.Sprintf("draft:%s:%s", s.BusinessID, s.UserID)
}

func catalogKey(businessID, kind string) string {
	return fmt.Sprintf("catalog:%s:%s", businessID, kind)
}

// LoadDraft returns the saved in-progress order for a session, or nil
func (c *Client) LoadDraft(ctx context.Context, s models.Session) (*models.Order, error) {
	b, err := c.rdb.Get(ctx, draftKey(s)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	var order models.Order
	if err := json.Unmarshal(b, &order); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &order, nil
}

// SaveDraft stores the in-progress order, refreshing its TTL
func (c *Client) SaveDraft(ctx context.Context, s models.Session, order models.Order, ttl time.Duration) error {
	b, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return c.rdb.Set(ctx, draftKey(s), b, ttl).Err()
}

// DeleteDraft drops the in-progress order for a session
func (c *Client) DeleteDraft(ctx context.Context, s models.Session) error {
	return c.rdb.Del(ctx, draftKey(s)).Err()
}

// GetCatalog decodes a cached catalog list into dst and reports whether it was present
func (c *Client) GetCatalog(ctx context.Context, businessID, kind string, dst interface{}) (bool, error) {
	b, err := c.rdb.Get(ctx, catalogKey(businessID, kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", kind, err)
	}
	return true, nil
}

// SetCatalog caches a catalog list for ttl
func (c *Client) SetCatalog(ctx context.Context, businessID, kind string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return c.rdb.Set(ctx, catalogKey(businessID, kind), b, ttl).Err()
}

// InvalidateCatalog drops cached catalog entries for a business.
// No kinds means all of them.
func (c *Client) InvalidateCatalog(ctx context.Context, businessID string, kinds ...string) error {
	if len(kinds) == 0 {
		kinds = catalogKinds
	}
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = catalogKey(businessID, k)
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// AcquireLock takes lockKey for ttl if nobody holds it
func (c *Client) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
}

// ReleaseLock releases lockKey if token still owns it
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Err()
}

// IsLocked reports whether anyone holds lockKey
func (c *Client) IsLocked(ctx context.Context, lockKey string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf("lock:%s", lockKey)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
