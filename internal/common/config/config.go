package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port          int    `env:"PORT" envDefault:"8080"`
		AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
	}

	Storefront struct {
		URL       string `env:"STOREFRONT_URL" envDefault:"https://tg-store.vercel.app/"`
		BrandName string `env:"BRAND_NAME" envDefault:"Hulu Delivery"`
	}

	Telegram struct {
		BotToken      string `env:"BOT_TOKEN,required,notEmpty"`
		APIURL        string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
		AdminChatID   int64  `env:"ADMIN_CHAT_ID,required,notEmpty"`
		WebhookURL    string `env:"TELEGRAM_WEBHOOK_URL"`
		WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`

		// Проверка init data мини-приложения на create-order
		RequireInitData bool          `env:"REQUIRE_INIT_DATA" envDefault:"false"`
		InitDataTTL     time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Store struct {
		Driver string `env:"STORE_DRIVER" envDefault:"redis"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Очередь повторной отправки уведомлений админу (Redis Stream)
	Outbox struct {
		Enabled  bool   `env:"NOTIFICATION_OUTBOX" envDefault:"true"`
		Consumer string `env:"NOTIFICATION_CONSUMER" envDefault:"storefront_worker_1"`
	}

	Postgres struct {
		URL         string `env:"DATABASE_URL"`
		AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
		MaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	}
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// .env is optional: in production variables come from the environment
	_ = godotenv.Load()

	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverRedis:
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=%s", StoreDriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Storefront.URL == "" {
		return fmt.Errorf("STOREFRONT_URL must not be empty")
	}
	return nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
