// Package embedding wraps the embedding provider behind a small
// interface. Indexing and retrieval must use the same connector so
// document and query vectors live in the same space.
package embedding

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

// Embedder turns text into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type Connector struct {
	config   config.EmbeddingConfig
	embedder *embeddings.EmbedderImpl
	logger   *zap.Logger
}

var _ Embedder = &Connector{}

// NewConnector builds a connector against any OpenAI-compatible
// embedding endpoint (OpenAI itself, TEI, ollama).
func NewConnector(cfg config.EmbeddingConfig, logger *zap.Logger) (*Connector, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Connector{
		config:   cfg,
		embedder: embedder,
		logger:   logger,
	}, nil
}

func (c *Connector) Dimension() int {
	return c.config.Dimension
}

func (c *Connector) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctxzap.Info(ctx, "embedding texts",
		zap.String("model", c.config.Model),
		zap.Int("count", len(texts)),
	)

	var vectors [][]float32
	err := retry.Do(func() error {
		var err error
		vectors, err = c.embedder.EmbedDocuments(ctx, texts)
		return err
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEmbeddingUnavailable, err)
	}

	for i, vec := range vectors {
		if len(vec) != c.config.Dimension {
			return nil, fmt.Errorf("%w: text %d embedded to %d dimensions, expected %d",
				entity.ErrDimensionMismatch, i, len(vec), c.config.Dimension)
		}
	}
	return vectors, nil
}

func (c *Connector) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(func() error {
		var err error
		vector, err = c.embedder.EmbedQuery(ctx, text)
		return err
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEmbeddingUnavailable, err)
	}

	if len(vector) != c.config.Dimension {
		return nil, fmt.Errorf("%w: query embedded to %d dimensions, expected %d",
			entity.ErrDimensionMismatch, len(vector), c.config.Dimension)
	}
	return vector, nil
}
