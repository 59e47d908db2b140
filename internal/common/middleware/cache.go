package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"storefront-bot-backend/internal/common/logger"
)

const cacheKeyPrefix = "httpcache:"

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// RedisCache caches successful GET responses for a short TTL. The key includes
// the Telegram user set by TelegramInitData, so it must run after it. A nil
// client disables caching.
func RedisCache(rdb redis.UniversalClient, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKeyPrefix + c.Request.Method + ":" + c.Request.URL.RequestURI()
		if u, ok := TelegramUser(c); ok {
			key += ":" + strconv.FormatInt(u.ID, 10)
		}

		ctx := c.Request.Context()
		if bs, err := rdb.Get(ctx, key).Bytes(); err == nil && len(bs) > 0 {
			var entry cachedResponse
			if json.Unmarshal(bs, &entry) == nil {
				c.Header("X-Cache", "HIT")
				c.Data(entry.Status, entry.ContentType, entry.Body)
				c.Abort()
				return
			}
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rec
		c.Header("X-Cache", "MISS")

		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 {
			return
		}

		entry := cachedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		payload, err := json.Marshal(entry)
		if err != nil {
			return
		}
		// запрос мог уже завершиться, поэтому отдельный контекст
		if err := rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to cache response")
		}
	}
}
