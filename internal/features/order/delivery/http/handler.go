package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/logger"
	"storefront-bot-backend/internal/common/middleware"
	"storefront-bot-backend/internal/features/order/models"
	"storefront-bot-backend/internal/features/order/service"
)

const (
	msgInvalidJSON  = "Invalid JSON format"
	msgOrderCreated = "Order created successfully"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(service service.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes mounts the order endpoints. auth guards the read endpoints
// always and create-order only when requireInitData is set.
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, requireInitData bool, auth ...gin.HandlerFunc) {
	if requireInitData {
		router.POST("/create-order", append(append([]gin.HandlerFunc{}, auth...), h.createOrder)...)
	} else {
		router.POST("/create-order", h.createOrder)
	}

	orders := router.Group("/orders")
	orders.Use(auth...)
	{
		orders.GET("", h.getMyOrders)
	}
}

// @Summary Create order
// @Description Persist a pending order from the storefront and notify the admin chat
// @Tags orders
// @Accept json
// @Produce json
// @Param order body models.CreateOrderRequest true "Order"
// @Success 201 {object} models.CreateOrderResponse "Order created"
// @Failure 400 {object} middleware.ErrorResponse "Missing fields or invalid JSON"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 403 {object} middleware.ErrorResponse "userId does not match init data"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /api/create-order [post]
func (h *OrderHandler) createOrder(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.RespondError(c, apperrors.NewMalformedInputError(msgInvalidJSON, err))
		return
	}

	var req models.CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		middleware.RespondError(c, decodeError(err))
		return
	}

	if tgUser, ok := middleware.TelegramUser(c); ok {
		if strconv.FormatInt(tgUser.ID, 10) != string(req.UserID) {
			middleware.RespondError(c, apperrors.NewForbiddenError("userId does not match init data").
				WithDetail("user_id", string(req.UserID)))
			return
		}
	}

	order, err := h.service.CreateOrder(c.Request.Context(), req.ToInput())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CreateOrderResponse{
		Message: msgOrderCreated,
		OrderID: order.ID,
	})
}

// @Summary Get my orders
// @Description Orders of the current Telegram user, newest first
// @Tags orders
// @Produce json
// @Security TelegramInitData
// @Success 200 {array} models.Order "Orders"
// @Failure 401 {object} middleware.ErrorResponse "Missing init data"
// @Failure 500 {object} middleware.ErrorResponse "Internal server error"
// @Router /api/orders [get]
func (h *OrderHandler) getMyOrders(c *gin.Context) {
	tgUser, ok := middleware.TelegramUser(c)
	if !ok {
		middleware.RespondError(c, apperrors.NewUnauthorizedError("Telegram init data required"))
		return
	}

	orders, err := h.service.GetUserOrders(c.Request.Context(), strconv.FormatInt(tgUser.ID, 10))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orders)
}

// decodeError separates broken JSON from well-formed bodies whose fields have
// the wrong type; the latter count as missing fields.
func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.NewMalformedInputError(msgInvalidJSON, err)
	}

	logger.Debug().Err(err).Msg("Order body has fields of unexpected type")
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, service.MsgMissingFields)
}
