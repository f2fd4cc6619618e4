package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// AgentRepository defines the interface for agent persistence. All
// lookups are scoped by owner so one user can never see another's
// agents.
type AgentRepository interface {
	Create(ctx context.Context, agent entity.Agent) (*entity.Agent, error)
	Get(ctx context.Context, id, userID string) (*entity.Agent, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Agent, error)
	Update(ctx context.Context, agent entity.Agent) (*entity.Agent, error)
	Delete(ctx context.Context, id, userID string) error
}

var _ AgentRepository = &AgentPostgres{}

type AgentPostgres struct {
	db *pgxpool.Pool
}

func NewAgentPostgres(db *pgxpool.Pool) *AgentPostgres {
	return &AgentPostgres{db: db}
}

func (r *AgentPostgres) Create(ctx context.Context, agent entity.Agent) (*entity.Agent, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO agents (id, user_id, name, prompt)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, prompt, created_at, updated_at`,
		agent.ID, agent.UserID, agent.Name, agent.Prompt,
	)

	created, err := scanAgent(row)
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}
	return created, nil
}

func (r *AgentPostgres) Get(ctx context.Context, id, userID string) (*entity.Agent, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, prompt, created_at, updated_at
		FROM agents WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAgentNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return agent, nil
}

func (r *AgentPostgres) ListByUser(ctx context.Context, userID string) ([]*entity.Agent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, prompt, created_at, updated_at
		FROM agents WHERE user_id = $1
		ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*entity.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (r *AgentPostgres) Update(ctx context.Context, agent entity.Agent) (*entity.Agent, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE agents
		SET name = $3, prompt = $4, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, prompt, created_at, updated_at`,
		agent.ID, agent.UserID, agent.Name, agent.Prompt,
	)

	updated, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrAgentNotFound
		}
		return nil, fmt.Errorf("update agent: %w", err)
	}
	return updated, nil
}

func (r *AgentPostgres) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM agents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrAgentNotFound
	}
	return nil
}

func scanAgent(row pgx.Row) (*entity.Agent, error) {
	var a entity.Agent
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Prompt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
