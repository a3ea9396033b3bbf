// Package main запускает HTTP-сервер сайта Vibes Studios.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/vibes-studio/internal/catalog"
	"github.com/mmeshcher/vibes-studio/internal/config"
	"github.com/mmeshcher/vibes-studio/internal/handler"
	"github.com/mmeshcher/vibes-studio/internal/imagestore"
	"github.com/mmeshcher/vibes-studio/internal/middleware"
	"github.com/mmeshcher/vibes-studio/internal/notify"
	"github.com/mmeshcher/vibes-studio/internal/payment"
	"github.com/mmeshcher/vibes-studio/internal/repository"
	"github.com/mmeshcher/vibes-studio/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.Open(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	pricing, err := catalog.Load()
	if err != nil {
		sugar.Fatalw("pricing catalog error", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := service.Options{
		Catalog:           pricing,
		IdempotencyWindow: cfg.IdempotencyWindow,
		Logger:            logger,
	}

	if cfg.PaymentsEnabled() {
		opts.Payments = payment.NewClient(cfg.StripeSecretKey, payment.Options{
			APIURL: cfg.StripeAPIURL,
			Logger: sugar,
		})
	} else {
		sugar.Warn("STRIPE_SECRET_KEY is not set, payments are disabled")
	}

	if cfg.AdminPassword != "" {
		hash, err := service.HashAdminPassword(cfg.AdminPassword)
		if err != nil {
			sugar.Fatalw("admin password error", "error", err.Error())
		}
		opts.AdminPasswordHash = hash
	} else {
		sugar.Warn("ADMIN_PASSWORD is not set, admin login is disabled")
	}

	if cfg.UploadsEnabled() {
		store, err := imagestore.New(ctx, cfg.ImageBucket, cfg.AWSRegion, cfg.ImageBaseURL)
		if err != nil {
			sugar.Fatalw("image store initialization error", "error", err.Error())
		}
		opts.Images = store
	}

	if cfg.NotificationsEnabled() {
		tg, err := notify.NewTelegram(notify.Config{Token: cfg.TelegramBotToken, ChatID: cfg.TelegramChatID})
		if err != nil {
			sugar.Warnw("telegram notifications are disabled", "error", err.Error())
		} else {
			sugar.Infow("telegram notifications enabled", "bot", tg.Username())
			opts.Notifier = tg
		}
	}

	svc := service.NewService(repo, opts)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.SessionSecret, middleware.DefaultSessionTTL)
	h := handler.NewHandler(svc, logger, authMiddleware, cfg.PaymentReturnURL)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая отправка уведомлений о заявках
	g.Go(func() error {
		svc.StartNotifications(ctx)
		return nil
	})

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting vibestudio server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
