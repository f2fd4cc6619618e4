package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers conversation routes under an agent
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/agents/{agent_id}/messages", func(r chi.Router) {
		r.Get("/", h.ListMessages)
		r.Post("/", h.SendMessage)
		r.Get("/export", h.ExportTranscript)
	})
}
