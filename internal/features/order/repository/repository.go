package repository

import (
	"context"

	"storefront-bot-backend/internal/features/order/models"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	// ListByUser returns up to limit orders of userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Order, error)
}
