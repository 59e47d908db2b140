package service

import (
	"context"
	"time"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/common/validation"
	"storefront-bot-backend/internal/platform/telegram"
)

const (
	botIdentityKey = "bot:me"
	botIdentityTTL = time.Hour
)

type MeGetter interface {
	GetMe(ctx context.Context) (*telegram.User, error)
}

// IdentityCache is satisfied by cache.CacheService.
type IdentityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ResolveBotUsername returns the bot username used in referral links. The
// getMe answer is cached for an hour when cache is not nil.
func ResolveBotUsername(ctx context.Context, tg MeGetter, cache IdentityCache) (string, error) {
	if cache != nil {
		var me telegram.User
		if err := cache.Get(ctx, botIdentityKey, &me); err == nil && me.Username != "" {
			return me.Username, nil
		}
	}

	me, err := tg.GetMe(ctx)
	if err != nil {
		return "", apperrors.NewTelegramAPIError("getMe", err)
	}
	if err := validation.ValidateUsername(me.Username); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeTelegramAPI, "getMe returned an unusable username")
	}

	if cache != nil {
		if err := cache.Set(ctx, botIdentityKey, me, botIdentityTTL); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache bot identity")
		}
	}
	return me.Username, nil
}
