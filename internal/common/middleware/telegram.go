package middleware

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
)

const (
	InitDataHeader      = "X-Telegram-Init-Data"
	WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	telegramUserKey = "user"
)

// TelegramInitData validates Mini App init data signed with the bot token and
// stores the signed user in the context. The legacy "init_data" header and
// query parameter are accepted too.
func TelegramInitData(token string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(InitDataHeader)
		if raw == "" {
			raw = c.GetHeader("init_data")
		}
		if raw == "" {
			raw = c.Query("init_data")
		}
		if raw == "" {
			RespondError(c, errors.NewUnauthorizedError("Telegram init data required"))
			return
		}

		if err := initdata.Validate(raw, token, ttl); err != nil {
			logger.Debug().Err(err).Str("request_id", GetRequestID(c)).Msg("Init data validation failed")
			RespondError(c, errors.NewUnauthorizedError("invalid init data"))
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			RespondError(c, errors.NewMalformedInputError("invalid init data format", err))
			return
		}
		if parsed.User.ID == 0 {
			RespondError(c, errors.NewUnauthorizedError("init data carries no user"))
			return
		}

		c.Set(telegramUserKey, parsed.User)
		c.Next()
	}
}

// TelegramUser returns the user stored by TelegramInitData.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, exists := c.Get(telegramUserKey)
	if !exists {
		return initdata.User{}, false
	}
	u, ok := v.(initdata.User)
	return u, ok
}

// WebhookSecret rejects updates that do not carry the secret registered with
// setWebhook. An empty secret disables the check.
func WebhookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CheckWebhookSecret(c, secret) {
			return
		}
		c.Next()
	}
}

// CheckWebhookSecret answers 401 and returns false when the secret header does
// not match.
func CheckWebhookSecret(c *gin.Context, secret string) bool {
	if secret == "" {
		return true
	}

	got := c.GetHeader(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
		RespondError(c, errors.NewUnauthorizedError("bad webhook secret"))
		return false
	}
	return true
}
