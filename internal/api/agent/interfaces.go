package agent

import (
	"context"
	"io"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

type AgentUsecase interface {
	CreateAgent(ctx context.Context, req *entity.CreateAgentRequest) (*entity.Agent, *entity.IndexResult, error)
	GetAgent(ctx context.Context, agentID, userID string) (*entity.Agent, error)
	ListAgents(ctx context.Context, userID string) (*entity.ListAgentsResponse, error)
	UpdateAgent(ctx context.Context, req *entity.UpdateAgentRequest) (*entity.Agent, *entity.IndexResult, error)
	DeleteAgent(ctx context.Context, agentID, userID string) error
	AddFiles(ctx context.Context, req *entity.AddFilesRequest) ([]*entity.Document, *entity.IndexResult, error)
	DownloadFile(ctx context.Context, userID, agentID, documentID string) (io.ReadSeekCloser, *entity.Document, error)
	DeleteFile(ctx context.Context, userID, agentID, documentID string) error
}
