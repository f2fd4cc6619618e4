// Package llm wraps the chat-completion provider used to generate
// agent replies.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

// Generator produces a single completion from an ordered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt []entity.PromptMessage) (string, error)
}

type Connector struct {
	config config.LLMConfig
	model  *openai.LLM
	logger *zap.Logger
}

var _ Generator = &Connector{}

func NewConnector(cfg config.LLMConfig, logger *zap.Logger) (*Connector, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	return &Connector{
		config: cfg,
		model:  model,
		logger: logger,
	}, nil
}

func (c *Connector) Generate(ctx context.Context, prompt []entity.PromptMessage) (string, error) {
	if len(prompt) == 0 {
		return "", fmt.Errorf("empty prompt")
	}

	messages := make([]llms.MessageContent, len(prompt))
	for i, m := range prompt {
		messages[i] = llms.TextParts(chatMessageType(m.Role), m.Content)
	}

	ctxzap.Info(ctx, "generating completion",
		zap.String("model", c.config.Model),
		zap.Int("messages", len(messages)),
	)

	var text string
	err := retry.Do(func() error {
		resp, err := c.model.GenerateContent(ctx, messages)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no choices returned")
		}
		text = resp.Choices[0].Content
		return nil
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return "", mapGenerationError(err)
	}

	return strings.TrimSpace(text), nil
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case entity.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entity.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// mapGenerationError distinguishes provider throttling from other
// failures so the API layer can answer 429 instead of 503.
func mapGenerationError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota") {
		return fmt.Errorf("%w: %v", entity.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %v", entity.ErrGenerationUnavailable, err)
}
