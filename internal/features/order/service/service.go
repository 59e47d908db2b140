package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/features/order/models"
	"storefront-bot-backend/internal/features/order/repository"
	"storefront-bot-backend/internal/platform/telegram"
)

const (
	MsgMissingFields = "Missing required fields (userId, items, or totalPrice)"

	defaultListLimit int64 = 50
)

// MessageSender is the part of the Bot API client used for admin notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

// Outbox keeps notifications that failed to send for a later retry.
type Outbox interface {
	Enqueue(ctx context.Context, params telegram.SendMessageParams) error
}

type OrderService interface {
	// CreateOrder persists a pending order and notifies the admin chat.
	// A failed notification does not fail the call.
	CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error)
	GetUserOrders(ctx context.Context, userID string) ([]*models.Order, error)
}

type Options struct {
	AdminChatID int64
	// Outbox is optional; without it a failed notification is only logged.
	Outbox Outbox
	Now    func() time.Time
	NewID  func() string
}

type orderService struct {
	repo   repository.OrderRepository
	sender MessageSender
	opts   Options
}

func NewOrderService(repo repository.OrderRepository, sender MessageSender, opts Options) OrderService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &orderService{
		repo:   repo,
		sender: sender,
		opts:   opts,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, in models.CreateOrderInput) (*models.Order, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = models.DefaultPaymentMethod
	}

	order := &models.Order{
		ID:            s.opts.NewID(),
		UserID:        strings.TrimSpace(in.UserID),
		Items:         compact(in.Items),
		TotalPrice:    in.TotalPrice.Decimal,
		PaymentMethod: paymentMethod,
		Status:        models.StatusPending,
		CreatedAt:     s.opts.Now().UTC(),
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, apperrors.NewStoreError("create order", err)
	}

	logger.Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Str("total_price", order.TotalPrice.String()).
		Str("payment_method", order.PaymentMethod).
		Msg("Order created")

	// заказ уже сохранен, уведомление не должно зависеть от клиента
	s.notifyAdmin(context.WithoutCancel(ctx), order)

	return order, nil
}

func (s *orderService) GetUserOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	orders, err := s.repo.ListByUser(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, apperrors.NewStoreError("list orders", err)
	}
	return orders, nil
}

func (s *orderService) notifyAdmin(ctx context.Context, order *models.Order) {
	text, err := FormatAdminNotification(order)
	if err != nil {
		logger.Error().Err(err).Str("order_id", order.ID).Msg("Failed to format admin notification")
		return
	}

	params := telegram.SendMessageParams{
		ChatID:    s.opts.AdminChatID,
		Text:      text,
		ParseMode: telegram.ParseModeMarkdown,
	}

	if _, err = s.sender.SendMessage(ctx, params); err != nil {
		var apiErr *telegram.APIError
		event := logger.Error().Err(err).Str("order_id", order.ID).Int64("admin_chat_id", s.opts.AdminChatID)
		if errors.As(err, &apiErr) {
			event = event.Int("telegram_code", apiErr.Code)
		}
		event.Msg("Failed to notify admin about order")

		if s.opts.Outbox != nil {
			if err := s.opts.Outbox.Enqueue(ctx, params); err != nil {
				logger.Error().Err(err).Str("order_id", order.ID).Msg("Failed to queue admin notification")
			}
		}
		return
	}

	logger.Debug().Str("order_id", order.ID).Msg("Admin notified")
}

func validate(in models.CreateOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" || !in.TotalPrice.Valid || !validItems(in.Items) {
		return apperrors.NewValidationError(MsgMissingFields)
	}
	return nil
}

// validItems reports whether raw is a non-empty JSON array of objects.
func validItems(raw json.RawMessage) bool {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return false
	}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return false
		}
	}
	return true
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
