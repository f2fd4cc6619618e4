package api

import (
	"net/http"
	"time"

	agentapi "github.com/apostol-ai/agent-backend/internal/api/agent"
	chatapi "github.com/apostol-ai/agent-backend/internal/api/chat"
	"github.com/apostol-ai/agent-backend/internal/api/docs"
	"github.com/apostol-ai/agent-backend/internal/api/middleware"
	userapi "github.com/apostol-ai/agent-backend/internal/api/user"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(
	userHandler *userapi.Handler,
	agentHandler *agentapi.Handler,
	chatHandler *chatapi.Handler,
	tokens middleware.TokenParser,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                 // Recover from panics
	r.Use(chimiddleware.RequestID)                 // Add request ID
	r.Use(middleware.Logger(logger))               // Log requests
	r.Use(middleware.CORS)                         // Handle CORS
	r.Use(chimiddleware.Timeout(60 * time.Second)) // Default timeout

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		userapi.RegisterRoutes(r, userHandler)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			agentapi.RegisterRoutes(r, agentHandler)
			chatapi.RegisterRoutes(r, chatHandler)
		})
	})

	return r
}
