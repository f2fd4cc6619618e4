package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// MessageRepository defines the interface for conversation
// persistence. Messages are append-only; the bigserial ID is the
// ordering of the transcript.
type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) (*entity.Message, error)
	ListByAgent(ctx context.Context, agentID string) ([]*entity.Message, error)
}

var _ MessageRepository = &MessagePostgres{}

type MessagePostgres struct {
	db *pgxpool.Pool
}

func NewMessagePostgres(db *pgxpool.Pool) *MessagePostgres {
	return &MessagePostgres{db: db}
}

func (r *MessagePostgres) Create(ctx context.Context, msg *entity.Message) (*entity.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (agent_id, sender, text)
		VALUES ($1, $2, $3)
		RETURNING id, agent_id, sender, text, created_at`,
		msg.AgentID, string(msg.Sender), msg.Text,
	)

	created, err := scanMessage(row)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return created, nil
}

func (r *MessagePostgres) ListByAgent(ctx context.Context, agentID string) ([]*entity.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, agent_id, sender, text, created_at
		FROM messages WHERE agent_id = $1
		ORDER BY id`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*entity.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func scanMessage(row pgx.Row) (*entity.Message, error) {
	var m entity.Message
	var sender string
	if err := row.Scan(&m.ID, &m.AgentID, &sender, &m.Text, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Sender = entity.Sender(sender)
	return &m, nil
}
