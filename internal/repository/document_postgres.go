package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// DocumentRepository defines the interface for document metadata
// persistence. File bytes live on disk; chunks live in the vector
// store; this table ties them together.
type DocumentRepository interface {
	Create(ctx context.Context, doc entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id, agentID string) (*entity.Document, error)
	ListByAgent(ctx context.Context, agentID string) ([]*entity.Document, error)
	Delete(ctx context.Context, id, agentID string) error
}

var _ DocumentRepository = &DocumentPostgres{}

type DocumentPostgres struct {
	db *pgxpool.Pool
}

func NewDocumentPostgres(db *pgxpool.Pool) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

func (r *DocumentPostgres) Create(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO documents (id, agent_id, filename, path, size, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, agent_id, filename, path, size, content_type, created_at`,
		doc.ID, doc.AgentID, doc.Filename, doc.Path, doc.Size, doc.ContentType,
	)

	created, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return created, nil
}

func (r *DocumentPostgres) Get(ctx context.Context, id, agentID string) (*entity.Document, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, agent_id, filename, path, size, content_type, created_at
		FROM documents WHERE id = $1 AND agent_id = $2`,
		id, agentID,
	)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentPostgres) ListByAgent(ctx context.Context, agentID string) ([]*entity.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, agent_id, filename, path, size, content_type, created_at
		FROM documents WHERE agent_id = $1
		ORDER BY created_at`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentPostgres) Delete(ctx context.Context, id, agentID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1 AND agent_id = $2`, id, agentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	if err := row.Scan(&d.ID, &d.AgentID, &d.Filename, &d.Path, &d.Size, &d.ContentType, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
