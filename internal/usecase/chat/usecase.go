// Package chat implements the retrieval-grounded conversation flow: a
// user message is persisted, relevant chunks are retrieved, a reply is
// generated and persisted.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/formatter"
)

type ChatUsecase struct {
	agentRepo   AgentRepository
	messageRepo MessageRepository
	embed       Embedder
	store       ChunkStore
	generator   Generator
	formatters  *formatter.Factory
	estimate    TokenEstimator
	cfg         config.ChatConfig
	logger      *zap.Logger
}

func NewUsecase(
	agentRepo AgentRepository,
	messageRepo MessageRepository,
	embed Embedder,
	store ChunkStore,
	generator Generator,
	formatters *formatter.Factory,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		agentRepo:   agentRepo,
		messageRepo: messageRepo,
		embed:       embed,
		store:       store,
		generator:   generator,
		formatters:  formatters,
		estimate:    DefaultTokenEstimator,
		cfg:         cfg,
		logger:      logger,
	}
}

// SendMessage runs one full chat turn. The user message is persisted
// before anything that can fail, so a generation outage never loses
// what the user typed. Retrieval failures degrade to an answer without
// context; generation failures are returned to the caller.
func (uc *ChatUsecase) SendMessage(ctx context.Context, userID, agentID, text string) (*entity.ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text", entity.ErrMissingField)
	}

	agent, err := uc.agentRepo.Get(ctx, agentID, userID)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	history, err := uc.messageRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg, err := uc.messageRepo.Create(ctx, &entity.Message{
		AgentID: agentID,
		Sender:  entity.SenderUser,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	chunks := uc.retrieve(ctx, agentID, text)
	window := buildWindow(history, uc.cfg.HistoryBudget, uc.estimate)
	prompt := composePrompt(agent.Prompt, chunks, window, text)

	ctxzap.Info(ctx, "generating reply",
		zap.String("agent_id", agentID),
		zap.Int("history_window", len(window)),
		zap.Int("context_chunks", len(chunks)),
	)

	answer, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		// The user message stays in the transcript; the client may retry.
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	botMsg, err := uc.messageRepo.Create(ctx, &entity.Message{
		AgentID: agentID,
		Sender:  entity.SenderBot,
		Text:    answer,
	})
	if err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	ctxzap.Info(ctx, "chat turn completed",
		zap.String("agent_id", agentID),
		zap.Int64("user_message_id", userMsg.ID),
		zap.Int64("bot_message_id", botMsg.ID),
	)

	return &entity.ChatReply{
		Message: botMsg,
		Sources: sourceRefs(chunks),
	}, nil
}

// retrieve embeds the question and queries the agent's collection.
// Any failure here is logged and swallowed: a chat turn without
// context beats a failed chat turn.
func (uc *ChatUsecase) retrieve(ctx context.Context, agentID, text string) []entity.ScoredChunk {
	vector, err := uc.embed.EmbedQuery(ctx, text)
	if err != nil {
		ctxzap.Warn(ctx, "query embedding failed, answering without context",
			zap.String("agent_id", agentID),
			zap.Error(err),
		)
		return nil
	}

	chunks, err := uc.store.Query(ctx, entity.CollectionName(agentID), vector, uc.cfg.TopK)
	if err != nil {
		ctxzap.Warn(ctx, "retrieval failed, answering without context",
			zap.String("agent_id", agentID),
			zap.Error(err),
		)
		return nil
	}
	return chunks
}

// ListMessages returns the agent's full transcript in chronological
// order, after checking the agent belongs to the user.
func (uc *ChatUsecase) ListMessages(ctx context.Context, userID, agentID string) ([]*entity.Message, error) {
	if _, err := uc.agentRepo.Get(ctx, agentID, userID); err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	messages, err := uc.messageRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ExportTranscript renders the transcript in the requested format and
// returns the bytes plus content type and a suggested filename.
func (uc *ChatUsecase) ExportTranscript(
	ctx context.Context,
	userID, agentID string,
	format entity.ExportFormat,
) ([]byte, string, string, error) {
	agent, err := uc.agentRepo.Get(ctx, agentID, userID)
	if err != nil {
		return nil, "", "", fmt.Errorf("get agent: %w", err)
	}

	messages, err := uc.messageRepo.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, "", "", fmt.Errorf("list messages: %w", err)
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, "", "", fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	data, err := f.Format(transcriptText(agent, messages))
	if err != nil {
		return nil, "", "", fmt.Errorf("format transcript: %w", err)
	}

	filename := fmt.Sprintf("%s-transcript%s", sanitizeBaseName(agent.Name), f.FileExtension())
	return data, f.ContentType(), filename, nil
}

func transcriptText(agent *entity.Agent, messages []*entity.Message) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Conversation with %s\n\n", agent.Name))
	for _, msg := range messages {
		label := "User"
		if msg.Sender == entity.SenderBot {
			label = agent.Name
		}
		sb.WriteString(fmt.Sprintf("%s (%s):\n%s\n\n", label, msg.CreatedAt.Format("2006-01-02 15:04"), msg.Text))
	}
	return strings.TrimSpace(sb.String())
}

func sanitizeBaseName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			sb.WriteRune('-')
		}
	}
	if sb.Len() == 0 {
		return "agent"
	}
	return sb.String()
}
