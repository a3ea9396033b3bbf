package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/vibes-studio/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сайта.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/pricing", h.GetPricing)
		r.Get("/pricing/{tier}", h.GetPricingTier)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.GetProjects)
			r.Post("/proposals", h.ProposeProject)
			r.Get("/{id}", h.GetProject)
			r.Post("/{status}/{id}/vote", h.Vote)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intents", h.CreatePaymentIntent)
			r.Get("/config", h.GetPaymentConfig)
		})

		r.Post("/consulting", h.SubmitConsulting)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.Post("/logout", h.AdminLogout)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Put("/board", h.ImportBoard)
				r.Post("/board/move", h.MoveProject)
				r.Patch("/projects/{id}", h.EditProject)
				r.Post("/projects/{id}/image", h.UploadProjectImage)
				r.Get("/consulting", h.ListConsulting)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
