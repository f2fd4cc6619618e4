package indexer

import (
	"context"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

type Loader interface {
	Load(ctx context.Context, path string) ([]entity.RawBlock, error)
}

type Chunker interface {
	Split(documentID, filename string, blocks []entity.RawBlock) []entity.Chunk
}

type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type ChunkStore interface {
	EnsureCollection(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, collection string) error
	Upsert(ctx context.Context, collection string, chunks []entity.Chunk) error
	DeleteByDocument(ctx context.Context, collection, documentID string) error
}
