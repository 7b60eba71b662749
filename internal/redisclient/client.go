package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/hold_item.lua
var holdItemScript string

//go:embed scripts/release_item.lua
var releaseItemScript string

type Client struct {
	rdb           *redis.Client
	holdScript    *redis.Script
	releaseScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
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
		holdScript:    redis.NewScript(holdItemScript),
		releaseScript: redis.NewScript(releaseItemScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// HoldItem atomically marks an item taken using a Lua script.
// Returns (true, nil) when this caller won the hold, (false, nil) when
// the item was already taken, and an error when the availability flag
// was never synced (callers fall back to the database lock).
func (c *Client) HoldItem(ctx context.Context, itemID int64) (bool, error) {
	key := fmt.Sprintf("item:%d:available", itemID)

	result, err := c.holdScript.Run(ctx, c.rdb, []string{key}).Result()
	if err != nil {
		return false, fmt.Errorf("hold item script failed: %w", err)
	}

	status, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}

	switch status {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("item %d not in availability cache", itemID)
	}
}

// ReleaseItem atomically puts a held item back on the market
func (c *Client) ReleaseItem(ctx context.Context, itemID int64) error {
	key := fmt.Sprintf("item:%d:available", itemID)

	if _, err := c.releaseScript.Run(ctx, c.rdb, []string{key}).Result(); err != nil {
		return fmt.Errorf("release item script failed: %w", err)
	}
	return nil
}

// InitItemAvailability seeds an item's availability flag
func (c *Client) InitItemAvailability(ctx context.Context, itemID int64, available bool) error {
	key := fmt.Sprintf("item:%d:available", itemID)

	val := "0"
	if available {
		val = "1"
	}
	return c.rdb.Set(ctx, key, val, 0).Err()
}

// SetTrackingStatus caches a courier lookup result with a TTL so
// repeated auto-confirm polls do not hammer the courier APIs.
func (c *Client) SetTrackingStatus(ctx context.Context, trackingNumber string, status interface{}, ttl time.Duration) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal tracking status: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("tracking:%s", trackingNumber), data, ttl).Err()
}

// GetTrackingStatus reads a cached courier lookup into dest.
// Returns false on a cache miss.
func (c *Client) GetTrackingStatus(ctx context.Context, trackingNumber string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("tracking:%s", trackingNumber)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal tracking status: %w", err)
	}
	return true, nil
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
