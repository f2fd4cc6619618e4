package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/response"
)

// TokenParser validates an access token and returns the user ID.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

type contextKey string

const userIDKey contextKey = "user_id"

// Auth requires a valid Bearer token and stores the caller's user ID
// in the request context.
func Auth(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}

			userID, err := parser.ParseToken(token)
			if err != nil {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the authenticated user's ID from the context. Empty
// when the request did not pass the Auth middleware.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter) {
	response.JSON(w, http.StatusUnauthorized, entity.ErrorResponse{
		Error:   http.StatusText(http.StatusUnauthorized),
		Message: "missing or invalid access token",
	})
}
