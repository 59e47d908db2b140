package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Only StatusPending is set by this service,
// the rest belong to the admin workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

const (
	// DefaultPaymentMethod is stored when the storefront sends no payment method.
	DefaultPaymentMethod = "Not specified"
	// UnknownItemName replaces a missing item name in notifications.
	UnknownItemName = "Unknown Item"
)

// Order is the document stored under orders/{id}.
// @Description Order submitted from the storefront
type Order struct {
	ID            string          `json:"id" example:"0b7e5a1c-1d7f-4c43-9a55-0f1f4e2f6a10"`
	UserID        string          `json:"userId" example:"42"`
	Items         json.RawMessage `json:"items" swaggertype:"array,object"`
	TotalPrice    decimal.Decimal `json:"totalPrice" swaggertype:"number" example:"9.5"`
	PaymentMethod string          `json:"paymentMethod" example:"Cash"`
	Status        Status          `json:"status" example:"pending"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MarshalJSON writes TotalPrice as a bare JSON number with the exact digits
// that were submitted.
func (o Order) MarshalJSON() ([]byte, error) {
	type document Order
	return json.Marshal(struct {
		document
		TotalPrice json.Number `json:"totalPrice"`
	}{
		document:   document(o),
		TotalPrice: json.Number(o.TotalPrice.String()),
	})
}

// CreateOrderInput is the validated-by-service input of CreateOrder.
type CreateOrderInput struct {
	UserID        string
	Items         json.RawMessage
	TotalPrice    decimal.NullDecimal
	PaymentMethod string
}

// LineItem is the view of one item used for the admin notification. Items are
// persisted verbatim, so fields not listed here survive.
type LineItem struct {
	Name     string
	Quantity string
}

// LineItems extracts name and quantity of every item. Missing names become
// UnknownItemName, missing quantities become 1.
func (o *Order) LineItems() ([]LineItem, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(o.Items, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	items := make([]LineItem, 0, len(raw))
	for _, fields := range raw {
		item := LineItem{Name: UnknownItemName, Quantity: "1"}
		if v, ok := fields["name"]; ok {
			if s := scalar(v); s != "" {
				item.Name = s
			}
		}
		if v, ok := fields["quantity"]; ok {
			if s := scalar(v); s != "" {
				item.Quantity = s
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// scalar renders a JSON string or number as text; anything else is empty.
func scalar(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return ""
	}
	return n.String()
}

// FlexibleID accepts a JSON string or number; the storefront sends Telegram ids
// as numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("userId must be a string or a number")
	}
	*f = FlexibleID(n.String())
	return nil
}

// CreateOrderRequest is the body of POST /api/create-order.
// @Description Order submitted by the storefront
type CreateOrderRequest struct {
	UserID        FlexibleID          `json:"userId" swaggertype:"string" example:"42"`
	Items         json.RawMessage     `json:"items" swaggertype:"array,object"`
	TotalPrice    decimal.NullDecimal `json:"totalPrice" swaggertype:"number" example:"9.5"`
	PaymentMethod string              `json:"paymentMethod,omitempty" example:"Cash"`
}

func (r *CreateOrderRequest) ToInput() CreateOrderInput {
	return CreateOrderInput{
		UserID:        string(r.UserID),
		Items:         r.Items,
		TotalPrice:    r.TotalPrice,
		PaymentMethod: r.PaymentMethod,
	}
}

// CreateOrderResponse is returned with 201.
type CreateOrderResponse struct {
	Message string `json:"message" example:"Order created successfully"`
	OrderID string `json:"orderId" example:"0b7e5a1c-1d7f-4c43-9a55-0f1f4e2f6a10"`
}
