package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bot-backend/internal/features/order/models"
)

type docArg func(doc map[string]interface{}) bool

func (m docArg) Match(v interface{}) bool {
	b, ok := v.([]byte)
	if !ok {
		return false
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return false
	}
	return m(doc)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	at := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	order := &models.Order{
		ID:            "o1",
		UserID:        "42",
		Items:         json.RawMessage(`[{"name":"Burger","quantity":2}]`),
		TotalPrice:    decimal.RequireFromString("9.5"),
		PaymentMethod: "Cash",
		Status:        models.StatusPending,
		CreatedAt:     at,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (id, user_id, data, created_at)")).
		WithArgs("o1", "42", docArg(func(doc map[string]interface{}) bool {
			return doc["totalPrice"] == 9.5 && doc["status"] == "pending" && doc["paymentMethod"] == "Cash"
		}), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPostgresRepository(mock).Create(context.Background(), order))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the newest-first order of the query", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
			WithArgs("42", int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"data"}).
				AddRow([]byte(`{"id":"o3","userId":"42","items":[],"totalPrice":12,"status":"pending"}`)).
				AddRow([]byte(`{"id":"o2","userId":"42","items":[],"totalPrice":"9.5","status":"pending"}`)))

		orders, err := NewPostgresRepository(mock).ListByUser(ctx, "42", 2)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o3", orders[0].ID)
		assert.Equal(t, "o2", orders[1].ID)
		assert.True(t, orders[0].TotalPrice.Equal(decimal.NewFromInt(12)))
		assert.True(t, orders[1].TotalPrice.Equal(decimal.RequireFromString("9.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero limit skips the query", func(t *testing.T) {
		mock := newMock(t)

		orders, err := NewPostgresRepository(mock).ListByUser(ctx, "42", 0)
		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT data FROM orders")).
			WithArgs("42", int64(50)).
			WillReturnError(errors.New("connection refused"))

		_, err := NewPostgresRepository(mock).ListByUser(ctx, "42", 50)
		assert.Error(t, err)
	})
}
