package service

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-bot-backend/internal/features/order/models"
)

func TestFormatAdminNotification_Defaults(t *testing.T) {
	order := &models.Order{
		UserID:        "42",
		Items:         json.RawMessage(`[{"quantity":3},{"name":"Fries"},{"name":"Cola","quantity":"2","price":1.5}]`),
		TotalPrice:    decimal.RequireFromString("12.00"),
		PaymentMethod: "Card",
	}

	text, err := FormatAdminNotification(order)
	require.NoError(t, err)

	assert.Contains(t, text, "- Unknown Item (x3)\n")
	assert.Contains(t, text, "- Fries (x1)\n")
	assert.Contains(t, text, "- Cola (x2)\n")
	assert.Contains(t, text, "💰 *Total Price:* 12\n")
	assert.Contains(t, text, "💳 *Payment Method:* Card\n\n")
}

func TestFormatAdminNotification_EscapesMarkdown(t *testing.T) {
	order := &models.Order{
		UserID:        "4`2",
		Items:         json.RawMessage(`[{"name":"Big_Mac *special* [xl]","quantity":1}]`),
		TotalPrice:    decimal.RequireFromString("5"),
		PaymentMethod: "cash_on_delivery",
	}

	text, err := FormatAdminNotification(order)
	require.NoError(t, err)

	assert.Contains(t, text, "👤 *User ID:* `42`\n")
	assert.Contains(t, text, `- Big\_Mac \*special\* \[xl] (x1)`)
	assert.Contains(t, text, `💳 *Payment Method:* cash\_on\_delivery`)
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "plain text", EscapeMarkdown("plain text"))
	assert.Equal(t, "a\\_b\\*c\\`d\\[e", EscapeMarkdown("a_b*c`d[e"))
}
