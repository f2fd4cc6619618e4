package entity

type SendMessageRequest struct {
	Text string `json:"text"`
}

type ChatReply struct {
	Message *Message    `json:"message"`
	Sources []SourceRef `json:"sources,omitempty"`
}

type ListMessagesResponse struct {
	Messages []*Message `json:"messages"`
}

// PromptMessage is one turn of the prompt sent to the generation model.
type PromptMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
