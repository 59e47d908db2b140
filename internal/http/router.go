package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "storefront-bot-backend/docs"
	"storefront-bot-backend/internal/common/config"
	"storefront-bot-backend/internal/common/middleware"
	bothttp "storefront-bot-backend/internal/features/bot/delivery/http"
	orderhttp "storefront-bot-backend/internal/features/order/delivery/http"
	userhttp "storefront-bot-backend/internal/features/user/delivery/http"
)

const (
	LivenessText = "Hello, BOT is running!"
	serviceName  = "storefront-bot-backend"

	responseCacheTTL = 2 * time.Second
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency is probed by /ready. A failing optional dependency only marks
// the service degraded.
type Dependency struct {
	Name     string
	Checker  HealthChecker
	Optional bool
}

type Deps struct {
	Config  *config.Config
	Users   *userhttp.UserHandler
	Orders  *orderhttp.OrderHandler
	Webhook *bothttp.WebhookHandler
	// Dependencies are checked in order by /ready.
	Dependencies []Dependency
	// Cache is optional; nil disables response caching.
	Cache redis.UniversalClient
}

// NewRouter wires middleware and routes. Unknown paths are dispatched by
// method: GET answers the liveness text, POST is a Telegram update, OPTIONS is
// a bare preflight.
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigin)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/ready", readyHandler(deps.Dependencies))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := []gin.HandlerFunc{
		middleware.TelegramInitData(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL),
		middleware.RedisCache(deps.Cache, responseCacheTTL),
	}

	api := router.Group("/api")
	{
		deps.Orders.RegisterRoutes(api, cfg.Telegram.RequireInitData, auth...)
		deps.Users.RegisterRoutes(api, auth...)
	}

	secret := cfg.Telegram.WebhookSecret
	router.POST("/webhook", middleware.WebhookSecret(secret), deps.Webhook.HandleUpdate)

	router.NoRoute(func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead:
			c.String(http.StatusOK, LivenessText)
		case http.MethodPost:
			if !middleware.CheckWebhookSecret(c, secret) {
				return
			}
			deps.Webhook.HandleUpdate(c)
		case http.MethodOptions:
			c.Status(http.StatusOK)
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		}
	})

	return router
}

func readyHandler(dependencies []Dependency) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		degraded := []string{}
		for _, d := range dependencies {
			err := d.Checker.HealthCheck(ctx)
			if err == nil {
				continue
			}
			if d.Optional {
				degraded = append(degraded, d.Name)
				continue
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   d.Name + " unavailable",
				"details": err.Error(),
			})
			return
		}

		if len(degraded) > 0 {
			c.JSON(http.StatusOK, gin.H{"status": "degraded", "degraded": degraded})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowHeaders:              []string{"Content-Type", middleware.InitDataHeader, middleware.RequestIDHeader},
		ExposeHeaders:             []string{middleware.RequestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{origin}
	}
	return cfg
}
