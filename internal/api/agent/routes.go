package agent

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers agent routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/agents", func(r chi.Router) {
		r.Post("/", h.CreateAgent)
		r.Get("/", h.ListAgents)

		r.Route("/{agent_id}", func(r chi.Router) {
			r.Get("/", h.GetAgent)
			r.Put("/", h.UpdateAgent)
			r.Delete("/", h.DeleteAgent)

			r.Post("/files", h.AddFiles)
			r.Get("/files/{file_id}", h.DownloadFile)
			r.Delete("/files/{file_id}", h.DeleteFile)
		})
	})
}
