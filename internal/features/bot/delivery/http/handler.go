package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/common/middleware"
	"storefront-bot-backend/internal/features/bot/service"
	"storefront-bot-backend/internal/platform/telegram"
)

type WebhookHandler struct {
	service service.BotService
}

func NewWebhookHandler(service service.BotService) *WebhookHandler {
	return &WebhookHandler{
		service: service,
	}
}

// @Summary Telegram webhook
// @Description Receives Bot API updates. Any POST path other than the API routes lands here.
// @Tags bot
// @Accept json
// @Param X-Telegram-Bot-Api-Secret-Token header string false "Webhook secret"
// @Success 200 "Update processed"
// @Failure 400 {object} middleware.ErrorResponse "Malformed update"
// @Failure 401 {object} middleware.ErrorResponse "Bad webhook secret"
// @Router /webhook [post]
func (h *WebhookHandler) HandleUpdate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.RespondError(c, apperrors.NewMalformedInputError("failed to read update", err))
		return
	}

	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		middleware.RespondError(c, apperrors.NewMalformedInputError("Invalid update format", err))
		return
	}

	// Telegram повторяет апдейт при не-2xx ответе, поэтому ошибки обработки только логируем
	if err := h.service.ProcessUpdate(c.Request.Context(), &update); err != nil {
		logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Int64("update_id", update.UpdateID).
			Msg("Failed to process update")
	}

	c.Status(http.StatusOK)
}
