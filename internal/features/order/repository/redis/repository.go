package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/features/order/models"
	"storefront-bot-backend/internal/features/order/repository"
)

const (
	keyPrefixOrder     = "orders:"
	keyPrefixUserIndex = "orders:user:"
)

type orderRepository struct {
	client redis.UniversalClient
}

func NewOrderRepository(client redis.UniversalClient) repository.OrderRepository {
	return &orderRepository{client: client}
}

func makeOrderKey(id string) string {
	return keyPrefixOrder + id
}

// makeUserIndexKey is a sorted set of order ids scored by creation time.
func makeUserIndexKey(userID string) string {
	return keyPrefixUserIndex + userID
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, makeOrderKey(order.ID), data, 0)
		pipe.ZAdd(ctx, makeUserIndexKey(order.UserID), redis.Z{
			Score:  float64(order.CreatedAt.UnixMilli()),
			Member: order.ID,
		})
		return nil
	})
	return err
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Order, error) {
	if limit <= 0 {
		return []*models.Order{}, nil
	}

	ids, err := r.client.ZRevRange(ctx, makeUserIndexKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Order{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = makeOrderKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	orders := make([]*models.Order, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// индекс пережил документ
			logger.Warn().Str("order_id", ids[i]).Str("user_id", userID).Msg("Indexed order is missing")
			continue
		}
		var order models.Order
		if err := json.Unmarshal([]byte(s), &order); err != nil {
			return nil, fmt.Errorf("failed to decode order %s: %w", ids[i], err)
		}
		orders = append(orders, &order)
	}
	return orders, nil
}
