package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/payment"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

const (
	// MsgInvalidAmount показывается пользователю для некорректной суммы.
	MsgInvalidAmount = "Payment amount must be greater than 0"
	// MsgPaymentFailed показывается пользователю при любой ошибке провайдера.
	MsgPaymentFailed = "Failed to create payment intent. Please try again."
	// MsgAmountTooLarge показывается для суммы больше лимита провайдера.
	MsgAmountTooLarge = "Payment amount must not exceed $999,999.99"
)

var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vibes-studio:payment-intent"))

// IdempotencyKey выводит ключ идемпотентности из email, суммы в центах и начала
// временного окна. Повторная отправка той же формы внутри окна даёт тот же ключ.
func IdempotencyKey(email string, amountCents int64, now time.Time, window time.Duration) string {
	start := now.UTC().Truncate(window)
	name := fmt.Sprintf("%s|%d|%d", strings.ToLower(strings.TrimSpace(email)), amountCents, start.UnixNano())
	return uuid.NewSHA1(idempotencyNamespace, []byte(name)).String()
}

// AmountCents проверяет сумму в долларах и переводит её в центы.
// Сумма проверяется до перевода, чтобы огромные значения не переполняли int64.
func AmountCents(amount float64) (int64, error) {
	if !validation.IsFiniteAmount(amount) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if amount*100 >= float64(payment.MaxAmountCents)+0.5 {
		return 0, ErrAmountTooLarge
	}

	cents := validation.ToCents(amount)
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// AmountMessage возвращает сообщение для пользователя по ошибке AmountCents.
func AmountMessage(err error) string {
	if errors.Is(err, ErrAmountTooLarge) {
		return MsgAmountTooLarge
	}
	return MsgInvalidAmount
}

// CreatePaymentIntent проверяет сумму и создаёт платёжное намерение у провайдера.
// Ошибки провайдера пишутся в журнал, пользователь получает общее сообщение.
func (s *Service) CreatePaymentIntent(ctx context.Context, req model.PaymentRequest) model.PaymentIntentResult {
	cents, err := AmountCents(req.Amount)
	if err != nil {
		return model.PaymentFailed(AmountMessage(err))
	}

	if s.payments == nil {
		s.logger.Warn("payment intent requested but payments are disabled")
		return model.PaymentFailed(MsgPaymentFailed)
	}

	key := req.IdempotencyKey
	if key == "" {
		key = IdempotencyKey(req.CustomerEmail, cents, s.now(), s.window)
	}

	intent, err := s.payments.CreateIntent(ctx, cents, req.CustomerEmail, key)
	if err != nil {
		fields := append(payment.ErrorFields(err),
			zap.Int64("amount_cents", cents),
			zap.String("idempotency_key", key),
		)
		s.logger.Error("failed to create payment intent", fields...)
		return model.PaymentFailed(MsgPaymentFailed)
	}

	s.logger.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_cents", cents),
	)

	return model.PaymentSucceeded(intent.ID, intent.ClientSecret, req.Amount)
}
