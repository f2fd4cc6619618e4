package chat

import (
	"context"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

type AgentRepository interface {
	Get(ctx context.Context, agentID, userID string) (*entity.Agent, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	ListByAgent(ctx context.Context, agentID string) ([]*entity.Message, error)
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type ChunkStore interface {
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]entity.ScoredChunk, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt []entity.PromptMessage) (string, error)
}
