package entity

import "time"

// Sender identifies who produced a message in an agent conversation.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

type User struct {
	ID           string    `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Agent is a named chat persona owned by one user. Its reference documents
// live in an isolated vector collection derived from the agent ID.
type Agent struct {
	ID        string      `json:"agent_id"`
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Prompt    string      `json:"prompt"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Documents []*Document `json:"documents,omitempty"`
}

// Document is one uploaded source file belonging to an agent.
type Document struct {
	ID          string    `json:"id"`
	AgentID     string    `json:"agent_id"`
	Filename    string    `json:"name"`
	Path        string    `json:"-"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one turn in an agent conversation. The ID is assigned by the
// database as a strictly increasing sequence, which defines turn order.
// Messages are append-only and never mutated.
type Message struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
