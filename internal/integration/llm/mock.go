package llm

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// MockConnector answers with a canned reply that echoes the last user
// message. Lets the whole chat path run without a model server.
type MockConnector struct {
	logger *zap.Logger
}

var _ Generator = &MockConnector{}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{logger: logger}
}

func (m *MockConnector) Generate(ctx context.Context, prompt []entity.PromptMessage) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating completion", zap.Int("messages", len(prompt)))

	lastUser := ""
	for i := len(prompt) - 1; i >= 0; i-- {
		if prompt[i].Role == entity.RoleUser {
			lastUser = prompt[i].Content
			break
		}
	}

	return fmt.Sprintf("This is a mock answer to: %q. Configure a model provider for real generation.", lastUser), nil
}
