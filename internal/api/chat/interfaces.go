package chat

import (
	"context"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

type ChatUsecase interface {
	SendMessage(ctx context.Context, userID, agentID, text string) (*entity.ChatReply, error)
	ListMessages(ctx context.Context, userID, agentID string) ([]*entity.Message, error)
	ExportTranscript(ctx context.Context, userID, agentID string, format entity.ExportFormat) ([]byte, string, string, error)
}
