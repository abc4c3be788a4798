package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"biblioteca-server/internal/models"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetBookstore retrieves a cached bookstore by slug.
// Returns nil on cache miss.
func (c *Client) GetBookstore(ctx context.Context, slug string) (*models.Bookstore, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("bookstore:%s", slug)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var bs models.Bookstore
	if err := json.Unmarshal(data, &bs); err != nil {
		return nil, fmt.Errorf("failed to decode cached bookstore: %w", err)
	}
	return &bs, nil
}

// SetBookstore caches a bookstore by slug with TTL
func (c *Client) SetBookstore(ctx context.Context, bs *models.Bookstore, ttl time.Duration) error {
	data, err := json.Marshal(bs)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("bookstore:%s", bs.Slug), data, ttl).Err()
}

// InventoryVersion returns the current inventory version for a bookstore.
// Listing cache keys embed this version, so bumping it invalidates every
// cached page for the store without key scans. Missing key reads as 0.
func (c *Client) InventoryVersion(ctx context.Context, slug string) (int64, error) {
	version, err := c.rdb.Get(ctx, fmt.Sprintf("invver:%s", slug)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return version, err
}

// BumpInventoryVersion increments the inventory version for a bookstore
func (c *Client) BumpInventoryVersion(ctx context.Context, slug string) error {
	return c.rdb.Incr(ctx, fmt.Sprintf("invver:%s", slug)).Err()
}

// GetCachedJSON retrieves a cached JSON value into dest.
// Returns false on cache miss.
func (c *Client) GetCachedJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

// SetCachedJSON stores a JSON-encoded value with TTL
func (c *Client) SetCachedJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// InvalidateBookstore drops the cached bookstore entry for a slug
func (c *Client) InvalidateBookstore(ctx context.Context, slug string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("bookstore:%s", slug)).Err()
}
