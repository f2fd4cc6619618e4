package user

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers authentication routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}
