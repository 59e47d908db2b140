package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/common/middleware"
	"storefront-bot-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth ...gin.HandlerFunc) {
	users := router.Group("/users")
	users.Use(auth...)
	{
		users.GET("/me", h.getMe)
	}
}

// @Summary Get current user
// @Description Points balance, referrals and referral link of the user identified by Telegram init data
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} models.UserResponse "User data"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 404 {object} middleware.ErrorResponse "User never started the bot"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /api/users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	telegramUser, ok := middleware.TelegramUser(c)
	if !ok {
		middleware.RespondError(c, apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}

	id := strconv.FormatInt(telegramUser.ID, 10)
	logger.Debug().Str("user_id", id).Str("username", telegramUser.Username).Msg("Profile requested")

	userResponse, err := h.service.GetProfile(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse)
}
