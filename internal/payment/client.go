// Package payment предоставляет клиент платёжного провайдера Stripe.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Purpose записывается в метаданные каждого платёжного намерения.
const Purpose = "Project development"

// Currency задаёт валюту всех платежей студии.
const Currency = stripe.CurrencyUSD

// MaxAmountCents ограничивает сумму одного платёжного намерения в Stripe.
const MaxAmountCents int64 = 99_999_999

// Client создаёт платёжные намерения в Stripe.
type Client struct {
	api *client.API
}

// Intent описывает созданное платёжное намерение.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
}

// Options задаёт необязательные параметры клиента.
type Options struct {
	// APIURL переопределяет адрес API (stripe-mock, тесты).
	APIURL     string
	HTTPClient *http.Client
	Logger     stripe.LeveledLoggerInterface
}

// NewClient создаёт клиент Stripe с указанным секретным ключом.
// Сетевые повторы SDK отключены: повтор безопасен только с ключом идемпотентности,
// и решение о нём принимает вызывающий.
func NewClient(secretKey string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
	}
	if opts.Logger != nil {
		cfg.LeveledLogger = opts.Logger
	}
	if opts.APIURL != "" {
		cfg.URL = stripe.String(strings.TrimRight(opts.APIURL, "/"))
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})

	return &Client{api: api}
}

// CreateIntent создаёт платёжное намерение на сумму amountCents центов с чеком на email.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, email, idempotencyKey string) (*Intent, error) {
	if c == nil || c.api == nil {
		return nil, fmt.Errorf("payment client not configured")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(string(Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if email != "" {
		params.ReceiptEmail = stripe.String(email)
	}
	params.Context = ctx
	params.AddMetadata("purpose", Purpose)
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
	}, nil
}

// ErrorFields возвращает поля для журнала с подробностями ошибки Stripe.
func ErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields = append(fields,
			zap.String("stripe_type", string(stripeErr.Type)),
			zap.String("stripe_code", string(stripeErr.Code)),
			zap.Int("stripe_status", stripeErr.HTTPStatusCode),
			zap.String("stripe_request_id", stripeErr.RequestID),
		)
	}
	return fields
}
