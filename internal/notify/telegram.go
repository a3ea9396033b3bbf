// Package notify отправляет уведомления о новых заявках в Telegram.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram отправляет сообщения в чат команды.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// Config задаёт параметры бота.
type Config struct {
	Token  string
	ChatID int64
	// Endpoint переопределяет адрес Bot API, формат как у tgbotapi.APIEndpoint.
	Endpoint   string
	HTTPClient *http.Client
}

// NewTelegram создаёт бота и проверяет токен запросом getMe.
func NewTelegram(cfg Config) (*Telegram, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Telegram{api: api, chatID: cfg.ChatID}, nil
}

// Username возвращает имя бота, под которым он авторизован.
func (t *Telegram) Username() string {
	return t.api.Self.UserName
}

// Notify отправляет текст в чат команды.
// Bot API не принимает контекст, поэтому отменённый ctx проверяется до отправки.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
