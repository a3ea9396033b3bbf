package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/vibes-studio/internal/service"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

type consultingRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	ProjectIdea string          `json:"projectIdea"`
	Budget      json.RawMessage `json:"budget"`
}

type consultingResponse struct {
	Status       string  `json:"status"`
	ID           int64   `json:"id,omitempty"`
	ClientSecret string  `json:"clientSecret,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// SubmitConsulting принимает заявку на разработку проекта.
// При положительном бюджете в ответе возвращается секрет платёжной формы.
func (h *Handler) SubmitConsulting(w http.ResponseWriter, r *http.Request) {
	var req consultingRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	budget, ok := validation.ParseAmount(req.Budget)
	if !ok {
		h.handleError(w, "submit consulting", &validation.Error{Fields: []validation.FieldError{{
			Field:   "budget",
			Message: "Budget must be a valid number.",
		}}})
		return
	}

	form := validation.ConsultingForm{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		ProjectIdea: strings.TrimSpace(req.ProjectIdea),
		Budget:      budget,
	}
	if err := validation.Struct(form); err != nil {
		h.handleError(w, "submit consulting", err)
		return
	}

	res, err := h.service.SubmitConsulting(r.Context(), service.ConsultingInput{
		Name:           form.Name,
		Email:          form.Email,
		ProjectIdea:    form.ProjectIdea,
		Budget:         form.Budget,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if errors.Is(err, service.ErrInvalidAmount) {
		h.writeJSON(w, http.StatusBadRequest, consultingResponse{Status: "error", Error: res.Payment.ErrorMessage})
		return
	}
	if errors.Is(err, service.ErrPaymentFailed) {
		h.writeJSON(w, http.StatusBadGateway, consultingResponse{Status: "error", Error: res.Payment.ErrorMessage})
		return
	}
	if err != nil {
		h.handleError(w, "submit consulting", err)
		return
	}

	if !res.PaymentRequired {
		h.writeJSON(w, http.StatusCreated, consultingResponse{Status: "submitted", ID: res.ID})
		return
	}

	h.writeJSON(w, http.StatusCreated, consultingResponse{
		Status:       "payment_required",
		ID:           res.ID,
		ClientSecret: res.Payment.ClientSecret,
		Amount:       res.Payment.Amount,
	})
}

type consultingLead struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	ProjectIdea     string  `json:"projectIdea"`
	Budget          float64 `json:"budget"`
	PaymentIntentID string  `json:"paymentIntentId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

// ListConsulting возвращает заявки на консалтинг для администратора.
func (h *Handler) ListConsulting(w http.ResponseWriter, r *http.Request) {
	leads, err := h.service.ListConsulting(r.Context())
	if err != nil {
		h.handleError(w, "list consulting", err)
		return
	}

	resp := make([]consultingLead, 0, len(leads))
	for _, l := range leads {
		resp = append(resp, consultingLead{
			ID:              l.ID,
			Name:            l.Name,
			Email:           l.Email,
			ProjectIdea:     l.ProjectIdea,
			Budget:          l.Budget,
			PaymentIntentID: l.PaymentIntentID,
			CreatedAt:       l.CreatedAt.Format(time.RFC3339),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
