package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/api/middleware"
	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/logger"
)

type Handler struct {
	usecase AgentUsecase
	cfg     config.FileUploadConfig
}

func NewHandler(usecase AgentUsecase, cfg config.FileUploadConfig) *Handler {
	return &Handler{usecase: usecase, cfg: cfg}
}

// CreateAgent handles POST /agents
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateAgent")

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}

	req := entity.CreateAgentRequest{
		UserID: middleware.UserID(ctx),
		Name:   r.FormValue("name"),
		Prompt: r.FormValue("prompt"),
		Files:  r.MultipartForm.File["files"],
	}

	ctxzap.Info(ctx, "creating agent",
		zap.String("name", req.Name),
		zap.Int("file_count", len(req.Files)),
	)

	agent, result, err := h.usecase.CreateAgent(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, toAgentDetail(agent, result))
}

// ListAgents handles GET /agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListAgents")

	resp, err := h.usecase.ListAgents(ctx, middleware.UserID(ctx))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// GetAgent handles GET /agents/{agent_id}
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", chi.URLParam(r, "agent_id")),
		zap.String("action", "GetAgent"),
	)

	agent, err := h.usecase.GetAgent(ctx, chi.URLParam(r, "agent_id"), middleware.UserID(ctx))
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toAgentDetail(agent, nil))
}

// UpdateAgent handles PUT /agents/{agent_id}
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "UpdateAgent"),
	)

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}

	req := entity.UpdateAgentRequest{
		UserID:  middleware.UserID(ctx),
		AgentID: agentID,
		Name:    r.FormValue("name"),
		Prompt:  r.FormValue("prompt"),
		Files:   r.MultipartForm.File["files"],
	}

	agent, result, err := h.usecase.UpdateAgent(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, toAgentDetail(agent, result))
}

// DeleteAgent handles DELETE /agents/{agent_id}
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "DeleteAgent"),
	)

	ctxzap.Info(ctx, "deleting agent")

	if err := h.usecase.DeleteAgent(ctx, agentID, middleware.UserID(ctx)); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, &entity.DeleteAgentResponse{Status: "deleted"})
}

// AddFiles handles POST /agents/{agent_id}/files
func (h *Handler) AddFiles(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("action", "AddFiles"),
	)

	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "at least one file is required", nil)
		return
	}

	docs, result, err := h.usecase.AddFiles(ctx, &entity.AddFilesRequest{
		UserID:  middleware.UserID(ctx),
		AgentID: agentID,
		Files:   files,
	})
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]any{
		"documents": docs,
		"indexing":  result,
	})
}

// DownloadFile handles GET /agents/{agent_id}/files/{file_id}
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	fileID := chi.URLParam(r, "file_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("file_id", fileID),
		zap.String("action", "DownloadFile"),
	)

	reader, doc, err := h.usecase.DownloadFile(ctx, middleware.UserID(ctx), agentID, fileID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}
	defer reader.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	io.Copy(w, reader)
}

// DeleteFile handles DELETE /agents/{agent_id}/files/{file_id}
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agent_id")
	fileID := chi.URLParam(r, "file_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("agent_id", agentID),
		zap.String("file_id", fileID),
		zap.String("action", "DeleteFile"),
	)

	if err := h.usecase.DeleteFile(ctx, middleware.UserID(ctx), agentID, fileID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
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
	case errors.Is(err, entity.ErrAgentNotFound), errors.Is(err, entity.ErrDocumentNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	case errors.Is(err, entity.ErrMissingField), errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrInvalidFile),
		errors.Is(err, entity.ErrFileTooLarge),
		errors.Is(err, entity.ErrTooManyFiles),
		errors.Is(err, entity.ErrInvalidExtension),
		errors.Is(err, entity.ErrTotalSizeTooLarge),
		errors.Is(err, entity.ErrUnsupportedFormat),
		errors.Is(err, entity.ErrCorruptDocument):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	case errors.Is(err, entity.ErrStoreUnavailable), errors.Is(err, entity.ErrEmbeddingUnavailable):
		h.respondError(ctx, w, http.StatusServiceUnavailable, "dependency unavailable", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
