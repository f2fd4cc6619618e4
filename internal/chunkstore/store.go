// Package chunkstore persists embedded chunks and serves similarity
// queries. Each agent owns one collection, so tenant isolation is a
// property of the collection name rather than of query filters.
package chunkstore

import (
	"context"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// Store is the vector storage used by indexing and retrieval.
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	EnsureCollection(ctx context.Context, collection string) error

	// DeleteCollection drops the collection and every chunk in it.
	// Deleting a collection that does not exist is not an error.
	DeleteCollection(ctx context.Context, collection string) error

	// Upsert writes chunks with their embeddings. Writing a chunk ID
	// that already exists replaces the stored point.
	Upsert(ctx context.Context, collection string, chunks []entity.Chunk) error

	// Query returns up to limit chunks ordered by descending cosine
	// similarity to the vector. A missing collection yields no results.
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]entity.ScoredChunk, error)

	// DeleteByDocument removes every chunk belonging to the document.
	DeleteByDocument(ctx context.Context, collection, documentID string) error
}
