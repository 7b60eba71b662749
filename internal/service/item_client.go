package service

import (
	"context"
	"fmt"

	"barterhub/internal/models"
	"barterhub/internal/redisclient"
	"barterhub/internal/store"
	"barterhub/internal/util"

	"go.uber.org/zap"
)

// ItemClient handles item availability holds. When an offer is accepted
// every traded item must come off the market exactly once, even when
// two negotiations race over the same listing.
type ItemClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewItemClient creates a new item client
func NewItemClient(store *store.Store, redis *redisclient.Client) *ItemClient {
	return &ItemClient{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// HoldItem takes an item off the market (fast path via Redis Lua,
// database row lock as fallback). Returns false when the item was
// already taken by a concurrent trade.
func (ic *ItemClient) HoldItem(ctx context.Context, itemID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "ItemClient.HoldItem")
	defer span.End()

	held, err := ic.redis.HoldItem(ctx, itemID)
	if err != nil {
		ic.logger.Warn("Redis item hold failed, falling back to DB",
			zap.Int64("item_id", itemID),
			zap.Error(err))
		return ic.store.HoldItemTx(ctx, itemID)
	}

	if !held {
		return false, nil
	}

	// mirror the hold into the database row
	if err := ic.store.SetItemAvailability(ctx, itemID, false); err != nil {
		ic.logger.Error("Failed to sync item hold to DB",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	return true, nil
}

// ReleaseItem puts a held item back on the market (compensation)
func (ic *ItemClient) ReleaseItem(ctx context.Context, itemID int64) error {
	ctx, span := util.StartSpan(ctx, "ItemClient.ReleaseItem")
	defer span.End()

	if err := ic.redis.ReleaseItem(ctx, itemID); err != nil {
		ic.logger.Error("Failed to release item in Redis",
			zap.Int64("item_id", itemID),
			zap.Error(err))
	}

	return ic.store.SetItemAvailability(ctx, itemID, true)
}

// SyncAvailabilityToRedis seeds Redis with the availability flag of
// every currently listed item.
func (ic *ItemClient) SyncAvailabilityToRedis(ctx context.Context) error {
	ic.logger.Info("Starting item availability sync to Redis")

	const batch = 500
	count := 0
	for offset := 0; ; offset += batch {
		items, err := ic.store.GetAvailableItems(ctx, batch, offset)
		if err != nil {
			return fmt.Errorf("failed to load items: %w", err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			if err := ic.redis.InitItemAvailability(ctx, item.ID, item.IsAvailable); err != nil {
				ic.logger.Error("Failed to seed item availability",
					zap.Int64("item_id", item.ID),
					zap.Error(err))
			}
		}
		count += len(items)
	}

	ic.logger.Info("Item availability sync completed", zap.Int("count", count))
	return nil
}

// GetItem retrieves an item by id
func (ic *ItemClient) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	return ic.store.GetItemByID(ctx, itemID)
}
