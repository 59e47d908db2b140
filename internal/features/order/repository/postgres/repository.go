package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"storefront-bot-backend/internal/features/order/models"
	"storefront-bot-backend/internal/features/order/repository"
	pgdb "storefront-bot-backend/internal/platform/postgres"
)

type orderRepository struct {
	db pgdb.DB
}

func NewPostgresRepository(db pgdb.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	const q = `INSERT INTO orders (id, user_id, data, created_at) VALUES ($1, $2, $3, $4)`
	_, err = r.db.Exec(ctx, q, order.ID, order.UserID, doc, order.CreatedAt)
	return err
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]*models.Order, error) {
	if limit <= 0 {
		return []*models.Order{}, nil
	}

	const q = `
	SELECT data FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Order, error) {
		var doc []byte
		if err := row.Scan(&doc); err != nil {
			return nil, err
		}
		var order models.Order
		if err := json.Unmarshal(doc, &order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		return &order, nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
