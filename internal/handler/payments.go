package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/service"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

type paymentIntentRequest struct {
	Amount json.RawMessage `json:"amount"`
	Email  string          `json:"email"`
}

type paymentIntentResponse struct {
	Success      bool    `json:"success"`
	ClientSecret string  `json:"clientSecret,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// CreatePaymentIntent создаёт платёжное намерение на указанную сумму.
// Сумма и email проверяются до обращения к провайдеру.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req paymentIntentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, paymentIntentResponse{Error: service.MsgInvalidAmount})
		return
	}

	amount, ok := validation.ParseAmount(req.Amount)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, paymentIntentResponse{Error: service.MsgInvalidAmount})
		return
	}

	if _, err := service.AmountCents(amount); err != nil {
		h.writeJSON(w, http.StatusBadRequest, paymentIntentResponse{Error: service.AmountMessage(err)})
		return
	}

	form := validation.PaymentForm{Email: strings.TrimSpace(req.Email)}
	if err := validation.Struct(form); err != nil {
		h.writeJSON(w, http.StatusBadRequest, paymentIntentResponse{Error: firstFieldMessage(err)})
		return
	}

	if !h.service.PaymentsEnabled() {
		h.writeJSON(w, http.StatusServiceUnavailable, paymentIntentResponse{Error: service.MsgPaymentFailed})
		return
	}

	res := h.service.CreatePaymentIntent(r.Context(), model.PaymentRequest{
		Amount:         amount,
		CustomerEmail:  form.Email,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})

	switch {
	case res.Success:
		h.writeJSON(w, http.StatusOK, paymentIntentResponse{
			Success:      true,
			ClientSecret: res.ClientSecret,
			Amount:       res.Amount,
		})
	case res.ErrorMessage == service.MsgInvalidAmount, res.ErrorMessage == service.MsgAmountTooLarge:
		h.writeJSON(w, http.StatusBadRequest, paymentIntentResponse{Error: res.ErrorMessage})
	default:
		h.writeJSON(w, http.StatusBadGateway, paymentIntentResponse{Error: res.ErrorMessage})
	}
}

func firstFieldMessage(err error) string {
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return verr.Fields[0].Message
	}
	return err.Error()
}

type paymentConfigResponse struct {
	ReturnURL string `json:"returnUrl"`
}

// GetPaymentConfig возвращает путь возврата после оплаты.
func (h *Handler) GetPaymentConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, paymentConfigResponse{ReturnURL: h.returnURL})
}

// GetPricing возвращает прайс-лист студии.
func (h *Handler) GetPricing(w http.ResponseWriter, r *http.Request) {
	c := h.service.Pricing()
	if c == nil {
		h.writeError(w, http.StatusNotFound, "pricing is not available")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// GetPricingTier возвращает один тариф по ключу.
func (h *Handler) GetPricingTier(w http.ResponseWriter, r *http.Request) {
	c := h.service.Pricing()
	if c == nil {
		h.writeError(w, http.StatusNotFound, "pricing is not available")
		return
	}

	tier, ok := c.Find(chi.URLParam(r, "tier"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "pricing tier not found")
		return
	}
	h.writeJSON(w, http.StatusOK, tier)
}
