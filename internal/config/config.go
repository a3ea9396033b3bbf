// Package config содержит логику чтения конфигурации сервера Vibes Studios.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress  = "localhost:8080"
	defaultDatabaseURI = "file:vibestudio.db"
)

// Config содержит параметры конфигурации сервера.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`
	AdminPassword   string `env:"ADMIN_PASSWORD"`

	StripeAPIURL      string        `env:"STRIPE_API_URL"`
	PaymentReturnURL  string        `env:"PAYMENT_RETURN_URL" envDefault:"/payment-success"`
	IdempotencyWindow time.Duration `env:"IDEMPOTENCY_WINDOW" envDefault:"10m"`
	SessionSecret     string        `env:"SESSION_SECRET"`

	ImageBucket  string `env:"IMAGE_BUCKET"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	ImageBaseURL string `env:"IMAGE_BASE_URL"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envStripeKey := cfg.StripeSecretKey
	envAdminPassword := cfg.AdminPassword

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", defaultDatabaseURI, "database URI: postgres://... or SQLite file")
	flag.StringVar(&cfg.StripeSecretKey, "s", "", "Stripe secret key")
	flag.StringVar(&cfg.AdminPassword, "p", "", "admin password")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envStripeKey != "" {
		cfg.StripeSecretKey = envStripeKey
	}
	if envAdminPassword != "" {
		cfg.AdminPassword = envAdminPassword
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.DatabaseURI == "" {
		cfg.DatabaseURI = defaultDatabaseURI
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.IdempotencyWindow <= 0 {
		return errors.New("IDEMPOTENCY_WINDOW must be positive")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

// PaymentsEnabled сообщает, задан ли ключ Stripe.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// UploadsEnabled сообщает, задан ли бакет для картинок.
func (c *Config) UploadsEnabled() bool {
	return c.ImageBucket != ""
}

// NotificationsEnabled сообщает, задан ли бот для уведомлений.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramBotToken != ""
}
