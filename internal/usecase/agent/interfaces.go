package agent

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// Indexer maintains the agent's vector collection.
type Indexer interface {
	IndexDocuments(ctx context.Context, agentID string, docs []entity.Document) (*entity.IndexResult, error)
	RemoveDocument(ctx context.Context, agentID, documentID string) error
	RemoveAgent(ctx context.Context, agentID string) error
}

// FileStore keeps the raw uploaded files.
type FileStore interface {
	Save(agentID, documentID, filename string, file multipart.File) (string, error)
	Open(path string) (io.ReadSeekCloser, error)
	Remove(path string) error
	RemoveAgent(agentID string) error
}
