package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/platform/telegram"
)

const (
	NotificationStream = "notifications:outbox"
	consumerGroup      = "storefront_notifiers"

	defaultMaxAttempts = 5
	defaultRetryDelay  = 30 * time.Second
	readBlock          = 5 * time.Second
)

// MessageSender is the part of the Bot API client the worker delivers with.
type MessageSender interface {
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
}

// NotificationQueue stores messages that could not be delivered right away.
type NotificationQueue struct {
	rdb redis.UniversalClient
}

func NewNotificationQueue(rdb redis.UniversalClient) *NotificationQueue {
	return &NotificationQueue{rdb: rdb}
}

// Enqueue adds a message to the outbox stream.
func (q *NotificationQueue) Enqueue(ctx context.Context, params telegram.SendMessageParams) error {
	return enqueue(ctx, q.rdb, params, 0)
}

func enqueue(ctx context.Context, rdb redis.UniversalClient, params telegram.SendMessageParams, attempts int) error {
	err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: NotificationStream,
		Values: map[string]interface{}{
			"chat_id":    strconv.FormatInt(params.ChatID, 10),
			"text":       params.Text,
			"parse_mode": params.ParseMode,
			"attempts":   strconv.Itoa(attempts),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// RedisStreamWorker delivers queued notifications, re-queueing failures until
// maxAttempts is reached.
type RedisStreamWorker struct {
	rdb         redis.UniversalClient
	sender      MessageSender
	consumer    string
	maxAttempts int
	retryDelay  time.Duration
}

func NewRedisStreamWorker(rdb redis.UniversalClient, sender MessageSender, consumer string) *RedisStreamWorker {
	if consumer == "" {
		consumer = "storefront_worker_1"
	}
	return &RedisStreamWorker{
		rdb:         rdb,
		sender:      sender,
		consumer:    consumer,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// Start blocks until ctx is cancelled.
func (w *RedisStreamWorker) Start(ctx context.Context) {
	if err := w.ensureGroup(ctx); err != nil {
		logger.Error().Err(err).Str("stream", NotificationStream).Msg("Failed to create consumer group")
	}

	logger.Info().Str("stream", NotificationStream).Str("consumer", w.consumer).Msg("Starting notification worker")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping notification worker")
			return
		default:
		}

		failed, err := w.poll(ctx, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Failed to read notification stream")
			sleep(ctx, time.Second)
			continue
		}
		if failed > 0 {
			sleep(ctx, w.retryDelay)
		}
	}
}

func (w *RedisStreamWorker) ensureGroup(ctx context.Context) error {
	// "0" so that entries queued before the first start are delivered too
	err := w.rdb.XGroupCreateMkStream(ctx, NotificationStream, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// poll reads one batch and reports how many deliveries failed.
func (w *RedisStreamWorker) poll(ctx context.Context, block time.Duration) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: w.consumer,
		Streams:  []string{NotificationStream, ">"},
		Count:    10,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	failed := 0
	for _, stream := range entries {
		for _, msg := range stream.Messages {
			if !w.processMessage(ctx, msg) {
				failed++
			}
			if err := w.rdb.XAck(ctx, NotificationStream, consumerGroup, msg.ID).Err(); err != nil {
				logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to ack notification")
			}
		}
	}
	return failed, nil
}

func (w *RedisStreamWorker) processMessage(ctx context.Context, msg redis.XMessage) bool {
	params, attempts, err := decodeMessage(msg.Values)
	if err != nil {
		logger.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed notification")
		return true
	}

	if _, err := w.sender.SendMessage(ctx, params); err != nil {
		attempts++
		event := logger.Warn().Err(err).Int64("chat_id", params.ChatID).Int("attempts", attempts)
		if attempts >= w.maxAttempts {
			event.Msg("Notification dropped after too many attempts")
			return false
		}
		event.Msg("Notification delivery failed, requeued")
		if err := enqueue(ctx, w.rdb, params, attempts); err != nil {
			logger.Error().Err(err).Int64("chat_id", params.ChatID).Msg("Failed to requeue notification")
		}
		return false
	}

	logger.Debug().Int64("chat_id", params.ChatID).Int("attempts", attempts+1).Msg("Queued notification delivered")
	return true
}

func decodeMessage(values map[string]interface{}) (telegram.SendMessageParams, int, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	chatID, err := strconv.ParseInt(str("chat_id"), 10, 64)
	if err != nil {
		return telegram.SendMessageParams{}, 0, fmt.Errorf("invalid chat_id: %w", err)
	}
	text := str("text")
	if text == "" {
		return telegram.SendMessageParams{}, 0, errors.New("empty text")
	}
	attempts, _ := strconv.Atoi(str("attempts"))

	return telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: str("parse_mode"),
	}, attempts, nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
