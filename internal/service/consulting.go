package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/model"
)

// ConsultingInput содержит проверенные данные формы консалтинга.
type ConsultingInput struct {
	Name           string
	Email          string
	ProjectIdea    string
	Budget         float64
	IdempotencyKey string
}

// ConsultingResult описывает итог отправки заявки. Payment заполнен, если бюджет положительный.
type ConsultingResult struct {
	ID              int64
	PaymentRequired bool
	Payment         model.PaymentIntentResult
}

// SubmitConsulting сохраняет заявку. При положительном бюджете сначала создаётся
// платёжное намерение; если оно не создано, заявка не сохраняется.
// Некорректный бюджет даёт ErrInvalidAmount.
func (s *Service) SubmitConsulting(ctx context.Context, in ConsultingInput) (ConsultingResult, error) {
	var res ConsultingResult

	req := &model.ConsultingRequest{
		Name:        in.Name,
		Email:       in.Email,
		ProjectIdea: in.ProjectIdea,
		Budget:      in.Budget,
		CreatedAt:   s.now().UTC(),
	}

	if in.Budget > 0 {
		if _, err := AmountCents(in.Budget); err != nil {
			res.Payment = model.PaymentFailed(AmountMessage(err))
			return res, err
		}
		if !s.PaymentsEnabled() {
			return res, ErrPaymentsDisabled
		}

		res.PaymentRequired = true
		res.Payment = s.CreatePaymentIntent(ctx, model.PaymentRequest{
			Amount:         in.Budget,
			CustomerEmail:  in.Email,
			IdempotencyKey: in.IdempotencyKey,
		})
		if !res.Payment.Success {
			return res, ErrPaymentFailed
		}
		req.PaymentIntentID = res.Payment.IntentID
	}

	id, err := s.repo.CreateConsultingRequest(ctx, req)
	if err != nil {
		return res, fmt.Errorf("save consulting request: %w", err)
	}
	res.ID = id

	s.logger.Info("consulting request saved",
		zap.Int64("id", id),
		zap.Bool("payment_required", res.PaymentRequired),
	)

	s.enqueue(fmt.Sprintf("New consulting request #%d\nFrom: %s <%s>\nBudget: $%.2f\n\n%s",
		id, in.Name, in.Email, in.Budget, in.ProjectIdea))

	return res, nil
}

// ListConsulting возвращает заявки на консалтинг, начиная с самых новых.
func (s *Service) ListConsulting(ctx context.Context) ([]model.ConsultingRequest, error) {
	return s.repo.ListConsultingRequests(ctx)
}
