package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"storefront-bot-backend/internal/common/cache"
	"storefront-bot-backend/internal/common/config"
	"storefront-bot-backend/internal/common/logger"
	bothttp "storefront-bot-backend/internal/features/bot/delivery/http"
	botservice "storefront-bot-backend/internal/features/bot/service"
	orderhttp "storefront-bot-backend/internal/features/order/delivery/http"
	orderrepo "storefront-bot-backend/internal/features/order/repository"
	orderpg "storefront-bot-backend/internal/features/order/repository/postgres"
	orderredis "storefront-bot-backend/internal/features/order/repository/redis"
	orderservice "storefront-bot-backend/internal/features/order/service"
	userhttp "storefront-bot-backend/internal/features/user/delivery/http"
	userrepo "storefront-bot-backend/internal/features/user/repository"
	userpg "storefront-bot-backend/internal/features/user/repository/postgres"
	userredis "storefront-bot-backend/internal/features/user/repository/redis"
	userservice "storefront-bot-backend/internal/features/user/service"
	apphttp "storefront-bot-backend/internal/http"
	"storefront-bot-backend/internal/platform/postgres"
	"storefront-bot-backend/internal/platform/redis"
	"storefront-bot-backend/internal/platform/telegram"
	"storefront-bot-backend/internal/workers"
)

const serviceName = "storefront-bot-backend"

// @title           Storefront Bot API
// @version         1.0
// @description     Telegram bot webhook and storefront order intake.
// @BasePath        /

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name X-Telegram-Init-Data
// @description Telegram Mini App init data string

// @tag.name orders
// @tag.description Order intake from the storefront

// @tag.name users
// @tag.description Points and referrals

// @tag.name bot
// @tag.description Telegram webhook

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init(serviceName, false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(serviceName, cfg.Debug)
	logger.Info().
		Bool("debug", cfg.Debug).
		Str("store", cfg.Store.Driver).
		Msg("Starting storefront bot backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		userRepository  userrepo.UserRepository
		orderRepository orderrepo.OrderRepository
		redisClient     *redis.Client
		dependencies    []apphttp.Dependency
	)

	// Инициализируем хранилище
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pgClient, err := postgres.NewClient(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pgClient.Close()

		userRepository = userpg.NewPostgresRepository(pgClient.Pool())
		orderRepository = orderpg.NewPostgresRepository(pgClient.Pool())
		dependencies = append(dependencies, apphttp.Dependency{Name: "postgres", Checker: pgClient})

		// Redis здесь нужен только для очереди уведомлений и кэшей
		redisClient, err = redis.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, notification outbox and caches disabled")
			redisClient = nil
		} else {
			dependencies = append(dependencies, apphttp.Dependency{Name: "redis", Checker: redisClient, Optional: true})
		}
	default:
		redisClient, err = redis.NewFromConfig(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}

		userRepository = userredis.NewUserRepository(redisClient.Client)
		orderRepository = orderredis.NewOrderRepository(redisClient.Client)
		dependencies = append(dependencies, apphttp.Dependency{Name: "redis", Checker: redisClient})
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.APIURL)

	var identityCache botservice.IdentityCache
	if redisClient != nil {
		identityCache = cache.NewCacheService(redisClient.Client)
	}

	botUsername, err := botservice.ResolveBotUsername(ctx, tgClient, identityCache)
	if err != nil {
		logger.Warn().Err(err).Msg("Bot identity unknown, referral links disabled")
	} else {
		logger.Info().Str("bot", botUsername).Msg("Bot identity resolved")
	}

	if cfg.Telegram.WebhookURL != "" {
		if err := tgClient.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Error().Err(err).Str("url", cfg.Telegram.WebhookURL).Msg("Failed to register webhook")
		} else {
			logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("Webhook registered")
		}
	}

	var (
		outbox      orderservice.Outbox
		cacheClient goredis.UniversalClient
	)
	if redisClient != nil {
		cacheClient = redisClient.Client

		if cfg.Outbox.Enabled {
			outbox = workers.NewNotificationQueue(redisClient.Client)
			worker := workers.NewRedisStreamWorker(redisClient.Client, tgClient, cfg.Outbox.Consumer)
			go worker.Start(ctx)
		}
	}

	// Инициализируем сервисы
	userSvc := userservice.NewUserService(userRepository, userservice.Options{
		StorefrontURL: cfg.Storefront.URL,
		BrandName:     cfg.Storefront.BrandName,
		BotUsername:   botUsername,
	})
	orderSvc := orderservice.NewOrderService(orderRepository, tgClient, orderservice.Options{
		AdminChatID: cfg.Telegram.AdminChatID,
		Outbox:      outbox,
	})
	botSvc := botservice.NewBotService(userSvc, tgClient, botUsername)

	logger.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Config:  cfg,
		Users:   userhttp.NewUserHandler(userSvc),
		Orders:  orderhttp.NewOrderHandler(orderSvc),
		Webhook: bothttp.NewWebhookHandler(botSvc),
		Cache:   cacheClient,

		Dependencies: dependencies,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Ждем сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
