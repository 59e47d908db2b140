package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	apperrors "storefront-bot-backend/internal/common/errors"
	"storefront-bot-backend/internal/common/middleware"
	"storefront-bot-backend/internal/features/user/models"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Onboard(ctx context.Context, in models.OnboardInput) (*models.Welcome, error) {
	args := m.Called(ctx, in)
	w, _ := args.Get(0).(*models.Welcome)
	return w, args.Error(1)
}

func (m *mockUserService) GetProfile(ctx context.Context, id string) (*models.UserResponse, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.UserResponse)
	return r, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(svc *mockUserService, initData gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	NewUserHandler(svc).RegisterRoutes(r.Group("/api"), initData)
	return r
}

func asUser(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", initdata.User{ID: id, FirstName: "John"})
		c.Next()
	}
}

func get(r http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	return rr
}

func TestGetMe(t *testing.T) {
	svc := new(mockUserService)
	svc.On("GetProfile", mock.Anything, "42").Return(&models.UserResponse{
		ID:             "42",
		FirstName:      "John",
		Balance:        600,
		ReferralsCount: 2,
		Referrals:      map[string]models.Referral{},
		ReferralLink:   "https://t.me/hulu_bot?start=ref_42",
	}, nil).Once()

	rr := get(newRouter(svc, asUser(42)))
	assert.Equal(t, http.StatusOK, rr.Code)

	var body models.UserResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, int64(600), body.Balance)
	assert.Equal(t, "https://t.me/hulu_bot?start=ref_42", body.ReferralLink)
}

func TestGetMe_NotFound(t *testing.T) {
	svc := new(mockUserService)
	svc.On("GetProfile", mock.Anything, "7").Return(nil, apperrors.NewNotFoundError("user", "7")).Once()

	rr := get(newRouter(svc, asUser(7)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetMe_NoInitData(t *testing.T) {
	svc := new(mockUserService)

	rr := get(newRouter(svc, middleware.TelegramInitData("123:abc", 0)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}
