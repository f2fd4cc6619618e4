// Package indexer owns the document-to-vector pipeline: extract,
// chunk, embed, and write into the agent's collection.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// IndexerUsecase implements the indexing business logic. Runs for the
// same agent are serialized; different agents index concurrently.
type IndexerUsecase struct {
	loader  Loader
	chunker Chunker
	embed   Embedder
	store   ChunkStore
	locks   *keyedMutex
	logger  *zap.Logger
}

func NewUsecase(
	loader Loader,
	chunker Chunker,
	embed Embedder,
	store ChunkStore,
	logger *zap.Logger,
) *IndexerUsecase {
	return &IndexerUsecase{
		loader:  loader,
		chunker: chunker,
		embed:   embed,
		store:   store,
		locks:   newKeyedMutex(),
		logger:  logger,
	}
}

// IndexDocuments ingests a batch of documents into the agent's
// collection. Each document is replaced wholesale: its previous chunks
// are removed before the new ones are written, so re-uploading a file
// never leaves stale chunks behind. A failing document is reported in
// the result and does not stop the rest of the batch; documents
// already written stay written.
func (uc *IndexerUsecase) IndexDocuments(ctx context.Context, agentID string, docs []entity.Document) (*entity.IndexResult, error) {
	collection := entity.CollectionName(agentID)

	uc.locks.Lock(agentID)
	defer uc.locks.Unlock(agentID)

	if err := uc.store.EnsureCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	result := &entity.IndexResult{Collection: collection}
	for _, doc := range docs {
		written, err := uc.indexOne(ctx, collection, doc)
		if err != nil {
			ctxzap.Warn(ctx, "document indexing failed",
				zap.String("document_id", doc.ID),
				zap.String("filename", doc.Filename),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, entity.DocumentError{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				Err:        err,
				Reason:     failureReason(err),
			})
			continue
		}
		result.ChunksWritten += written
	}

	ctxzap.Info(ctx, "indexing run finished",
		zap.String("collection", collection),
		zap.Int("documents", len(docs)),
		zap.Int("chunks_written", result.ChunksWritten),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}

func (uc *IndexerUsecase) indexOne(ctx context.Context, collection string, doc entity.Document) (int, error) {
	blocks, err := uc.loader.Load(ctx, doc.Path)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", doc.Filename, err)
	}

	chunks := uc.chunker.Split(doc.ID, doc.Filename, blocks)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("load %s: %w", doc.Filename, entity.ErrCorruptDocument)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := uc.embed.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %s: %w", doc.Filename, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed %s: got %d vectors for %d chunks", doc.Filename, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	// Replace-by-document: drop the old generation first so edits that
	// shrink a file do not leave orphaned chunks.
	if err := uc.store.DeleteByDocument(ctx, collection, doc.ID); err != nil {
		return 0, fmt.Errorf("clear previous chunks of %s: %w", doc.Filename, err)
	}
	if err := uc.store.Upsert(ctx, collection, chunks); err != nil {
		return 0, fmt.Errorf("store %s: %w", doc.Filename, err)
	}

	return len(chunks), nil
}

// RemoveDocument deletes the document's chunks from the agent's
// collection. Safe to call for documents that were never indexed.
func (uc *IndexerUsecase) RemoveDocument(ctx context.Context, agentID, documentID string) error {
	uc.locks.Lock(agentID)
	defer uc.locks.Unlock(agentID)

	collection := entity.CollectionName(agentID)
	if err := uc.store.DeleteByDocument(ctx, collection, documentID); err != nil {
		return fmt.Errorf("delete document chunks: %w", err)
	}

	ctxzap.Info(ctx, "document chunks removed",
		zap.String("collection", collection),
		zap.String("document_id", documentID),
	)
	return nil
}

// RemoveAgent drops the agent's entire collection.
func (uc *IndexerUsecase) RemoveAgent(ctx context.Context, agentID string) error {
	uc.locks.Lock(agentID)
	defer uc.locks.Unlock(agentID)

	collection := entity.CollectionName(agentID)
	if err := uc.store.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	ctxzap.Info(ctx, "agent collection removed", zap.String("collection", collection))
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, entity.ErrUnsupportedFormat):
		return "unsupported format"
	case errors.Is(err, entity.ErrCorruptDocument):
		return "no extractable text"
	case errors.Is(err, entity.ErrEmbeddingUnavailable):
		return "embedding service unavailable"
	case errors.Is(err, entity.ErrStoreUnavailable):
		return "vector store unavailable"
	case errors.Is(err, entity.ErrDimensionMismatch):
		return "embedding dimension mismatch"
	default:
		return "internal error"
	}
}
