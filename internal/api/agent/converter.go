package agent

import "github.com/apostol-ai/agent-backend/internal/entity"

type agentDetail struct {
	ID        string             `json:"agent_id"`
	Name      string             `json:"name"`
	Prompt    string             `json:"prompt"`
	CreatedAt string             `json:"created_at"`
	UpdatedAt string             `json:"updated_at"`
	Documents []*entity.Document `json:"documents"`
	Indexing  *entity.IndexResult `json:"indexing,omitempty"`
}

func toAgentDetail(a *entity.Agent, result *entity.IndexResult) *agentDetail {
	docs := a.Documents
	if docs == nil {
		docs = []*entity.Document{}
	}
	detail := &agentDetail{
		ID:        a.ID,
		Name:      a.Name,
		Prompt:    a.Prompt,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: a.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Documents: docs,
	}
	if result != nil && (result.ChunksWritten > 0 || len(result.Failed) > 0) {
		detail.Indexing = result
	}
	return detail
}
