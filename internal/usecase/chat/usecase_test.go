package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/chunkstore"
	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/integration/embedding"
	"github.com/apostol-ai/agent-backend/internal/pkg/formatter"
)

type fakeAgentRepo struct {
	agents map[string]*entity.Agent
}

func (r *fakeAgentRepo) Get(_ context.Context, agentID, userID string) (*entity.Agent, error) {
	agent, ok := r.agents[agentID]
	if !ok || agent.UserID != userID {
		return nil, entity.ErrAgentNotFound
	}
	return agent, nil
}

type fakeMessageRepo struct {
	messages  []*entity.Message
	nextID    int64
	createErr error
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *entity.Message) (*entity.Message, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	stored := *msg
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	r.messages = append(r.messages, &stored)
	return &stored, nil
}

func (r *fakeMessageRepo) ListByAgent(_ context.Context, agentID string) ([]*entity.Message, error) {
	var out []*entity.Message
	for _, m := range r.messages {
		if m.AgentID == agentID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeGenerator struct {
	answer string
	err    error
	prompt []entity.PromptMessage
}

func (g *fakeGenerator) Generate(_ context.Context, prompt []entity.PromptMessage) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type failingStore struct{}

func (failingStore) Query(context.Context, string, []float32, int) ([]entity.ScoredChunk, error) {
	return nil, entity.ErrStoreUnavailable
}

const chatTestDim = 64

func newChatFixture(gen Generator) (*ChatUsecase, *fakeMessageRepo, *chunkstore.MemoryStore) {
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{
		"agent-1": {ID: "agent-1", UserID: "user-1", Name: "Physics Tutor", Prompt: "You are a physics tutor."},
	}}
	messages := &fakeMessageRepo{}
	store := chunkstore.NewMemoryStore(chatTestDim)
	uc := NewUsecase(
		agents,
		messages,
		embedding.NewMockConnector(chatTestDim, zap.NewNop()),
		store,
		gen,
		formatter.NewFactory(),
		config.ChatConfig{TopK: 3, HistoryBudget: 100},
		zap.NewNop(),
	)
	return uc, messages, store
}

func seedChunks(t *testing.T, store *chunkstore.MemoryStore) {
	t.Helper()
	mock := embedding.NewMockConnector(chatTestDim, zap.NewNop())
	texts := []string{
		"Newton's first law says objects keep their velocity without force.",
		"Entropy measures disorder in thermodynamic systems.",
	}
	vecs, err := mock.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)

	chunks := make([]entity.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = entity.Chunk{
			ID:         entity.ChunkID("doc-1", i+1, i),
			DocumentID: "doc-1",
			Filename:   "physics101.pdf",
			Text:       text,
			Page:       i + 1,
			Index:      i,
			Embedding:  vecs[i],
		}
	}
	require.NoError(t, store.Upsert(context.Background(), entity.CollectionName("agent-1"), chunks))
}

func TestSendMessage_HappyPathWithSources(t *testing.T) {
	gen := &fakeGenerator{answer: "Objects in motion stay in motion."}
	uc, messages, store := newChatFixture(gen)
	seedChunks(t, store)

	reply, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "What does Newton's first law say?")
	require.NoError(t, err)

	assert.Equal(t, entity.SenderBot, reply.Message.Sender)
	assert.Equal(t, "Objects in motion stay in motion.", reply.Message.Text)
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, "physics101.pdf", reply.Sources[0].Filename)

	// Both turns persisted in order.
	require.Len(t, messages.messages, 2)
	assert.Equal(t, entity.SenderUser, messages.messages[0].Sender)
	assert.Equal(t, entity.SenderBot, messages.messages[1].Sender)
	assert.Less(t, messages.messages[0].ID, messages.messages[1].ID)

	// Prompt carries the system prompt, the context, and the question.
	require.NotEmpty(t, gen.prompt)
	assert.Equal(t, entity.RoleSystem, gen.prompt[0].Role)
	assert.Contains(t, gen.prompt[0].Content, "You are a physics tutor.")
	assert.Contains(t, gen.prompt[0].Content, "[physics101.pdf, page 1]")
	last := gen.prompt[len(gen.prompt)-1]
	assert.Equal(t, entity.RoleUser, last.Role)
	assert.Equal(t, "What does Newton's first law say?", last.Content)
}

func TestSendMessage_GenerationFailureKeepsUserMessage(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: model down", entity.ErrGenerationUnavailable)}
	uc, messages, _ := newChatFixture(gen)

	_, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "hello?")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrGenerationUnavailable)

	// Durability: the user turn survives the outage, no bot turn exists.
	require.Len(t, messages.messages, 1)
	assert.Equal(t, entity.SenderUser, messages.messages[0].Sender)
	assert.Equal(t, "hello?", messages.messages[0].Text)
}

func TestSendMessage_RetrievalFailureDegradesToNoContext(t *testing.T) {
	gen := &fakeGenerator{answer: "Answering from general knowledge."}
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{
		"agent-1": {ID: "agent-1", UserID: "user-1", Name: "Tutor", Prompt: "Be helpful."},
	}}
	messages := &fakeMessageRepo{}
	uc := NewUsecase(
		agents,
		messages,
		embedding.NewMockConnector(chatTestDim, zap.NewNop()),
		failingStore{},
		gen,
		formatter.NewFactory(),
		config.ChatConfig{TopK: 3, HistoryBudget: 100},
		zap.NewNop(),
	)

	reply, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "What is entropy?")
	require.NoError(t, err)

	assert.Equal(t, "Answering from general knowledge.", reply.Message.Text)
	assert.Empty(t, reply.Sources)
	assert.NotContains(t, gen.prompt[0].Content, "Context:")
}

func TestSendMessage_EmptyAgentAnswersWithoutContext(t *testing.T) {
	gen := &fakeGenerator{answer: "No documents yet, but hello."}
	uc, _, _ := newChatFixture(gen)

	reply, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "Hi there")
	require.NoError(t, err)
	assert.Empty(t, reply.Sources)
	assert.NotContains(t, gen.prompt[0].Content, "Context:")
}

func TestSendMessage_Validation(t *testing.T) {
	gen := &fakeGenerator{answer: "x"}
	uc, _, _ := newChatFixture(gen)

	_, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "   ")
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, err = uc.SendMessage(context.Background(), "user-2", "agent-1", "hello")
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)

	_, err = uc.SendMessage(context.Background(), "user-1", "agent-unknown", "hello")
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)
}

func TestSendMessage_HistoryWindowInPrompt(t *testing.T) {
	gen := &fakeGenerator{answer: "answer"}
	uc, messages, _ := newChatFixture(gen)

	// Seed prior turns directly.
	for i := 0; i < 3; i++ {
		_, err := messages.Create(context.Background(), &entity.Message{
			AgentID: "agent-1", Sender: entity.SenderUser, Text: fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
		_, err = messages.Create(context.Background(), &entity.Message{
			AgentID: "agent-1", Sender: entity.SenderBot, Text: fmt.Sprintf("answer %d", i),
		})
		require.NoError(t, err)
	}

	_, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "follow-up")
	require.NoError(t, err)

	// system + window + current question; window excludes the question.
	require.GreaterOrEqual(t, len(gen.prompt), 3)
	assert.Equal(t, entity.RoleSystem, gen.prompt[0].Role)
	assert.Equal(t, "follow-up", gen.prompt[len(gen.prompt)-1].Content)
	// Newest history turns survive the budget cut.
	assert.Equal(t, "answer 2", gen.prompt[len(gen.prompt)-2].Content)
	assert.Equal(t, entity.RoleAssistant, gen.prompt[len(gen.prompt)-2].Role)
}

func TestListMessages_OwnershipEnforced(t *testing.T) {
	gen := &fakeGenerator{answer: "x"}
	uc, messages, _ := newChatFixture(gen)
	_, err := messages.Create(context.Background(), &entity.Message{AgentID: "agent-1", Sender: entity.SenderUser, Text: "hi"})
	require.NoError(t, err)

	got, err := uc.ListMessages(context.Background(), "user-1", "agent-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = uc.ListMessages(context.Background(), "user-2", "agent-1")
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)
}

func TestExportTranscript(t *testing.T) {
	gen := &fakeGenerator{answer: "x"}
	uc, messages, _ := newChatFixture(gen)
	_, err := messages.Create(context.Background(), &entity.Message{AgentID: "agent-1", Sender: entity.SenderUser, Text: "What is inertia?"})
	require.NoError(t, err)
	_, err = messages.Create(context.Background(), &entity.Message{AgentID: "agent-1", Sender: entity.SenderBot, Text: "Resistance to change in motion."})
	require.NoError(t, err)

	data, contentType, filename, err := uc.ExportTranscript(context.Background(), "user-1", "agent-1", entity.FormatMarkdown)
	require.NoError(t, err)

	assert.Equal(t, "text/markdown; charset=utf-8", contentType)
	assert.Equal(t, "physics-tutor-transcript.md", filename)
	assert.Contains(t, string(data), "What is inertia?")
	assert.Contains(t, string(data), "Physics Tutor")

	_, _, _, err = uc.ExportTranscript(context.Background(), "user-1", "agent-1", entity.ExportFormat("xml"))
	assert.ErrorIs(t, err, entity.ErrInvalidParameter)
}

func TestBuildWindow(t *testing.T) {
	msg := func(text string) *entity.Message { return &entity.Message{Text: text} }

	history := []*entity.Message{
		msg("oldest message with quite a lot of text in it"), // 12 tokens
		msg("middle message here"),                           // 5 tokens
		msg("newest"),                                        // 2 tokens
	}

	// Budget fits everything.
	window := buildWindow(history, 100, DefaultTokenEstimator)
	assert.Len(t, window, 3)

	// Budget fits only the two newest.
	window = buildWindow(history, 8, DefaultTokenEstimator)
	require.Len(t, window, 2)
	assert.Equal(t, "middle message here", window[0].Text)
	assert.Equal(t, "newest", window[1].Text)

	// Budget fits nothing.
	window = buildWindow(history, 1, DefaultTokenEstimator)
	assert.Empty(t, window)

	// Empty history.
	assert.Empty(t, buildWindow(nil, 100, DefaultTokenEstimator))
}

func TestSourceRefs_DedupeKeepsBestScore(t *testing.T) {
	chunks := []entity.ScoredChunk{
		{Chunk: entity.Chunk{Filename: "a.pdf", Page: 1}, Score: 0.9},
		{Chunk: entity.Chunk{Filename: "a.pdf", Page: 1}, Score: 0.7},
		{Chunk: entity.Chunk{Filename: "a.pdf", Page: 2}, Score: 0.6},
		{Chunk: entity.Chunk{Filename: "b.txt", Page: 1}, Score: 0.5},
	}

	refs := sourceRefs(chunks)
	require.Len(t, refs, 3)
	assert.Equal(t, entity.SourceRef{Filename: "a.pdf", Page: 1, Score: 0.9}, refs[0])
	assert.Equal(t, entity.SourceRef{Filename: "a.pdf", Page: 2, Score: 0.6}, refs[1])
	assert.Equal(t, entity.SourceRef{Filename: "b.txt", Page: 1, Score: 0.5}, refs[2])

	assert.Nil(t, sourceRefs(nil))
}

func TestSendMessage_PersistUserMessageFailure(t *testing.T) {
	gen := &fakeGenerator{answer: "x"}
	uc, messages, _ := newChatFixture(gen)
	messages.createErr = errors.New("db down")

	_, err := uc.SendMessage(context.Background(), "user-1", "agent-1", "hello")
	require.Error(t, err)
	assert.Empty(t, messages.messages)
	// Generation never ran.
	assert.Nil(t, gen.prompt)
}
