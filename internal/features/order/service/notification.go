package service

import (
	"fmt"
	"strings"

	"storefront-bot-backend/internal/features/order/models"
)

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes the characters that legacy Telegram Markdown treats as
// entity delimiters.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatAdminNotification renders the Markdown message sent to the admin chat
// for a new order.
func FormatAdminNotification(order *models.Order) (string, error) {
	items, err := order.LineItems()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📦 *New Order Received!*\n\n")
	fmt.Fprintf(&b, "👤 *User ID:* `%s`\n", strings.ReplaceAll(order.UserID, "`", ""))
	b.WriteString("🛒 *Items:*\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (x%s)\n", EscapeMarkdown(item.Name), EscapeMarkdown(item.Quantity))
	}
	fmt.Fprintf(&b, "💰 *Total Price:* %s\n", order.TotalPrice.String())
	fmt.Fprintf(&b, "💳 *Payment Method:* %s\n\n", EscapeMarkdown(order.PaymentMethod))
	b.WriteString("✅ Please review and accept the order.")

	return b.String(), nil
}
