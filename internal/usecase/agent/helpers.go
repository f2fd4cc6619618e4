package agent

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/validator"
)

// storeAndIndex persists the uploaded files to disk and metadata, then
// hands them to the indexer. Files that fail to store are skipped with
// a log entry; indexing failures surface in the IndexResult.
func (uc *AgentUsecase) storeAndIndex(
	ctx context.Context,
	agentID string,
	files []*multipart.FileHeader,
) ([]*entity.Document, *entity.IndexResult, error) {
	docs := make([]*entity.Document, 0, len(files))
	for _, fh := range files {
		doc, err := uc.storeOne(ctx, agentID, fh)
		if err != nil {
			return nil, nil, fmt.Errorf("store %s: %w", fh.Filename, err)
		}
		docs = append(docs, doc)
	}

	toIndex := make([]entity.Document, len(docs))
	for i, d := range docs {
		toIndex[i] = *d
	}

	result, err := uc.indexer.IndexDocuments(ctx, agentID, toIndex)
	if err != nil {
		return docs, nil, fmt.Errorf("index documents: %w", err)
	}

	if len(result.Failed) > 0 {
		ctxzap.Warn(ctx, "some documents were not indexed",
			zap.String("agent_id", agentID),
			zap.Int("failed", len(result.Failed)),
		)
	}

	return docs, result, nil
}

func (uc *AgentUsecase) storeOne(ctx context.Context, agentID string, fh *multipart.FileHeader) (*entity.Document, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidFile, err)
	}
	defer file.Close()

	documentID := uuid.New().String()
	filename := validator.SanitizeFilename(fh.Filename)

	path, err := uc.files.Save(agentID, documentID, filename, file)
	if err != nil {
		return nil, fmt.Errorf("save file: %w", err)
	}

	doc, err := uc.docRepo.Create(ctx, entity.Document{
		ID:          documentID,
		AgentID:     agentID,
		Filename:    filename,
		Path:        path,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		uc.files.Remove(path)
		return nil, fmt.Errorf("save document metadata: %w", err)
	}
	return doc, nil
}
