package handler

import (
	"errors"
	"net/http"

	"github.com/mmeshcher/vibes-studio/internal/service"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

// AdminLogin проверяет пароль администратора и выдаёт cookie сессии.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var form validation.LoginForm
	if !h.decodeJSON(w, r, &form) {
		return
	}
	if err := validation.Struct(form); err != nil {
		h.handleError(w, "admin login", err)
		return
	}

	if err := h.service.AuthenticateAdmin(form.Password); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "Invalid password")
			return
		}
		h.handleError(w, "admin login", err)
		return
	}

	h.authMiddleware.SetSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// AdminLogout завершает сессию администратора.
func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
