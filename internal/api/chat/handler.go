package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/api/middleware"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/logger"
)

type Handler struct {
	usecase ChatUsecase
}

func NewHandler(usecase ChatUsecase) *Handler {
	return &Handler{usecase: usecase}
}

// ListMessages handles GET /agents/{agent_id}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "ListMessages"),
	)

	messages, err := h.usecase.ListMessages(ctx, middleware.UserID(ctx), agentID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	if messages == nil {
		messages = []*entity.Message{}
	}

	h.respondJSON(w, http.StatusOK, &entity.ListMessagesResponse{Messages: messages})
}

// SendMessage handles POST /agents/{agent_id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "SendMessage"),
	)

	var req entity.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	reply, err := h.usecase.SendMessage(ctx, middleware.UserID(ctx), agentID, req.Text)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "message answered", zap.Int64("message_id", reply.Message.ID))
	h.respondJSON(w, http.StatusCreated, reply)
}

// ExportTranscript handles GET /agents/{agent_id}/messages/export
func (h *Handler) ExportTranscript(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "ExportTranscript"),
	)

	format := entity.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = entity.FormatMarkdown
	}
	if !format.IsValid() {
		h.respondError(ctx, w, http.StatusBadRequest, "format must be one of: markdown, docx, pdf", nil)
		return
	}

	data, contentType, filename, err := h.usecase.ExportTranscript(ctx, middleware.UserID(ctx), agentID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Error(ctx, message)
	}
	h.respondJSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrAgentNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrMissingField), errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrRateLimited):
		h.respondError(ctx, w, http.StatusTooManyRequests, "model provider is rate limiting", err)
	case errors.Is(err, entity.ErrGenerationUnavailable),
		errors.Is(err, entity.ErrEmbeddingUnavailable),
		errors.Is(err, entity.ErrStoreUnavailable):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "dependency unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
