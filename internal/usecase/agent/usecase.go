// Package agent implements agent lifecycle: creation with documents,
// updates, file management, and the teardown that keeps database,
// disk, and vector store in step.
package agent

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/validator"
	"github.com/apostol-ai/agent-backend/internal/repository"
)

type AgentUsecase struct {
	agentRepo repository.AgentRepository
	docRepo   repository.DocumentRepository
	files     FileStore
	indexer   Indexer
	validator *validator.Validator
	logger    *zap.Logger
}

func NewUsecase(
	agentRepo repository.AgentRepository,
	docRepo repository.DocumentRepository,
	files FileStore,
	indexer Indexer,
	validator *validator.Validator,
	logger *zap.Logger,
) *AgentUsecase {
	return &AgentUsecase{
		agentRepo: agentRepo,
		docRepo:   docRepo,
		files:     files,
		indexer:   indexer,
		validator: validator,
		logger:    logger,
	}
}

// CreateAgent creates the agent and ingests its initial documents.
// The agent exists once its row is written; per-document indexing
// failures are reported in the result without undoing the creation.
func (uc *AgentUsecase) CreateAgent(ctx context.Context, req *entity.CreateAgentRequest) (*entity.Agent, *entity.IndexResult, error) {
	if err := uc.validator.ValidateCreateAgent(req); err != nil {
		return nil, nil, err
	}

	agent, err := uc.agentRepo.Create(ctx, entity.Agent{
		ID:     uuid.New().String(),
		UserID: req.UserID,
		Name:   req.Name,
		Prompt: req.Prompt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create agent: %w", err)
	}

	ctxzap.Info(ctx, "agent created",
		zap.String("agent_id", agent.ID),
		zap.String("name", agent.Name),
	)

	result := &entity.IndexResult{Collection: entity.CollectionName(agent.ID)}
	if len(req.Files) > 0 {
		agent.Documents, result, err = uc.storeAndIndex(ctx, agent.ID, req.Files)
		if err != nil {
			// Creation is not rolled back; the client can re-upload files.
			return agent, result, fmt.Errorf("ingest files: %w", err)
		}
	}

	return agent, result, nil
}

// GetAgent returns the agent with its document list.
func (uc *AgentUsecase) GetAgent(ctx context.Context, agentID, userID string) (*entity.Agent, error) {
	agent, err := uc.agentRepo.Get(ctx, agentID, userID)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	docs, err := uc.docRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	agent.Documents = docs
	return agent, nil
}

func (uc *AgentUsecase) ListAgents(ctx context.Context, userID string) (*entity.ListAgentsResponse, error) {
	agents, err := uc.agentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	resp := &entity.ListAgentsResponse{Agents: make([]*entity.AgentSummary, 0, len(agents))}
	for _, a := range agents {
		docs, err := uc.docRepo.ListByAgent(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		resp.Agents = append(resp.Agents, &entity.AgentSummary{
			ID:            a.ID,
			Name:          a.Name,
			Prompt:        a.Prompt,
			DocumentCount: len(docs),
		})
	}
	return resp, nil
}

// UpdateAgent changes name and prompt, and ingests any new files.
// Prompt changes take effect on the next chat turn without touching
// the index.
func (uc *AgentUsecase) UpdateAgent(ctx context.Context, req *entity.UpdateAgentRequest) (*entity.Agent, *entity.IndexResult, error) {
	agent, err := uc.agentRepo.Get(ctx, req.AgentID, req.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get agent: %w", err)
	}

	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.Prompt != "" {
		agent.Prompt = req.Prompt
	}

	agent, err = uc.agentRepo.Update(ctx, *agent)
	if err != nil {
		return nil, nil, fmt.Errorf("update agent: %w", err)
	}

	result := &entity.IndexResult{Collection: entity.CollectionName(agent.ID)}
	if len(req.Files) > 0 {
		if err := uc.validator.ValidateUpload(req.Files); err != nil {
			return nil, nil, err
		}
		_, result, err = uc.storeAndIndex(ctx, agent.ID, req.Files)
		if err != nil {
			return agent, result, fmt.Errorf("ingest files: %w", err)
		}
	}

	docs, err := uc.docRepo.ListByAgent(ctx, agent.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list documents: %w", err)
	}
	agent.Documents = docs

	ctxzap.Info(ctx, "agent updated", zap.String("agent_id", agent.ID))
	return agent, result, nil
}

// DeleteAgent removes the agent everywhere: vector collection first,
// then files on disk, then the database rows. A failure to drop the
// collection aborts the delete so no orphaned collection outlives its
// agent.
func (uc *AgentUsecase) DeleteAgent(ctx context.Context, agentID, userID string) error {
	if _, err := uc.agentRepo.Get(ctx, agentID, userID); err != nil {
		return fmt.Errorf("get agent: %w", err)
	}

	if err := uc.indexer.RemoveAgent(ctx, agentID); err != nil {
		return fmt.Errorf("remove collection: %w", err)
	}
	if err := uc.files.RemoveAgent(agentID); err != nil {
		return fmt.Errorf("remove files: %w", err)
	}
	if err := uc.agentRepo.Delete(ctx, agentID, userID); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	ctxzap.Info(ctx, "agent deleted", zap.String("agent_id", agentID))
	return nil
}

// AddFiles uploads and indexes additional documents for an agent.
func (uc *AgentUsecase) AddFiles(ctx context.Context, req *entity.AddFilesRequest) ([]*entity.Document, *entity.IndexResult, error) {
	if _, err := uc.agentRepo.Get(ctx, req.AgentID, req.UserID); err != nil {
		return nil, nil, fmt.Errorf("get agent: %w", err)
	}
	if err := uc.validator.ValidateUpload(req.Files); err != nil {
		return nil, nil, err
	}

	return uc.storeAndIndex(ctx, req.AgentID, req.Files)
}

// DownloadFile opens a stored document for streaming back to the
// client.
func (uc *AgentUsecase) DownloadFile(ctx context.Context, userID, agentID, documentID string) (io.ReadSeekCloser, *entity.Document, error) {
	if _, err := uc.agentRepo.Get(ctx, agentID, userID); err != nil {
		return nil, nil, fmt.Errorf("get agent: %w", err)
	}

	doc, err := uc.docRepo.Get(ctx, documentID, agentID)
	if err != nil {
		return nil, nil, fmt.Errorf("get document: %w", err)
	}

	reader, err := uc.files.Open(doc.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return reader, doc, nil
}

// DeleteFile removes one document: its chunks, its file, its row.
func (uc *AgentUsecase) DeleteFile(ctx context.Context, userID, agentID, documentID string) error {
	if _, err := uc.agentRepo.Get(ctx, agentID, userID); err != nil {
		return fmt.Errorf("get agent: %w", err)
	}

	doc, err := uc.docRepo.Get(ctx, documentID, agentID)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if err := uc.indexer.RemoveDocument(ctx, agentID, documentID); err != nil {
		return fmt.Errorf("remove chunks: %w", err)
	}
	if err := uc.files.Remove(doc.Path); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	if err := uc.docRepo.Delete(ctx, documentID, agentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	ctxzap.Info(ctx, "document deleted",
		zap.String("agent_id", agentID),
		zap.String("document_id", documentID),
	)
	return nil
}
