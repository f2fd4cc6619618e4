package agent

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/pkg/validator"

	"github.com/apostol-ai/agent-backend/internal/config"
)

type fakeAgentRepo struct {
	agents map[string]*entity.Agent
}

func (r *fakeAgentRepo) Create(_ context.Context, a entity.Agent) (*entity.Agent, error) {
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.agents[a.ID] = &a
	return &a, nil
}

func (r *fakeAgentRepo) Get(_ context.Context, id, userID string) (*entity.Agent, error) {
	a, ok := r.agents[id]
	if !ok || a.UserID != userID {
		return nil, entity.ErrAgentNotFound
	}
	return a, nil
}

func (r *fakeAgentRepo) ListByUser(_ context.Context, userID string) ([]*entity.Agent, error) {
	var out []*entity.Agent
	for _, a := range r.agents {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) Update(_ context.Context, a entity.Agent) (*entity.Agent, error) {
	stored, ok := r.agents[a.ID]
	if !ok || stored.UserID != a.UserID {
		return nil, entity.ErrAgentNotFound
	}
	a.UpdatedAt = time.Now()
	r.agents[a.ID] = &a
	return &a, nil
}

func (r *fakeAgentRepo) Delete(_ context.Context, id, userID string) error {
	a, ok := r.agents[id]
	if !ok || a.UserID != userID {
		return entity.ErrAgentNotFound
	}
	delete(r.agents, id)
	return nil
}

type fakeDocRepo struct {
	docs map[string]*entity.Document
}

func (r *fakeDocRepo) Create(_ context.Context, d entity.Document) (*entity.Document, error) {
	d.CreatedAt = time.Now()
	r.docs[d.ID] = &d
	return &d, nil
}

func (r *fakeDocRepo) Get(_ context.Context, id, agentID string) (*entity.Document, error) {
	d, ok := r.docs[id]
	if !ok || d.AgentID != agentID {
		return nil, entity.ErrDocumentNotFound
	}
	return d, nil
}

func (r *fakeDocRepo) ListByAgent(_ context.Context, agentID string) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range r.docs {
		if d.AgentID == agentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id, agentID string) error {
	d, ok := r.docs[id]
	if !ok || d.AgentID != agentID {
		return entity.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

type fakeFileStore struct {
	saved        map[string][]byte
	removedAgent []string
}

func (s *fakeFileStore) Save(agentID, documentID, filename string, file multipart.File) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	path := agentID + "/" + documentID + "_" + filename
	s.saved[path] = data
	return path, nil
}

func (s *fakeFileStore) Open(path string) (io.ReadSeekCloser, error) {
	data, ok := s.saved[path]
	if !ok {
		return nil, io.ErrUnexpectedEOF
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

func (s *fakeFileStore) Remove(path string) error {
	delete(s.saved, path)
	return nil
}

func (s *fakeFileStore) RemoveAgent(agentID string) error {
	s.removedAgent = append(s.removedAgent, agentID)
	return nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }

type fakeIndexer struct {
	indexed     map[string][]entity.Document
	removedDocs []string
	removed     []string
}

func (i *fakeIndexer) IndexDocuments(_ context.Context, agentID string, docs []entity.Document) (*entity.IndexResult, error) {
	i.indexed[agentID] = append(i.indexed[agentID], docs...)
	return &entity.IndexResult{Collection: entity.CollectionName(agentID), ChunksWritten: len(docs)}, nil
}

func (i *fakeIndexer) RemoveDocument(_ context.Context, agentID, documentID string) error {
	i.removedDocs = append(i.removedDocs, documentID)
	return nil
}

func (i *fakeIndexer) RemoveAgent(_ context.Context, agentID string) error {
	i.removed = append(i.removed, agentID)
	return nil
}

func newFixture() (*AgentUsecase, *fakeAgentRepo, *fakeDocRepo, *fakeFileStore, *fakeIndexer) {
	agents := &fakeAgentRepo{agents: map[string]*entity.Agent{}}
	docs := &fakeDocRepo{docs: map[string]*entity.Document{}}
	files := &fakeFileStore{saved: map[string][]byte{}}
	idx := &fakeIndexer{indexed: map[string][]entity.Document{}}
	v := validator.NewValidator(config.FileUploadConfig{
		MaxFileSize:  1 << 20,
		MaxTotalSize: 4 << 20,
		MaxFileCount: 4,
	})
	uc := NewUsecase(agents, docs, files, idx, v, zap.NewNop())
	return uc, agents, docs, files, idx
}

// multipartFiles builds real multipart.FileHeader values by writing
// and re-parsing an in-memory form.
func multipartFiles(t *testing.T, names map[string]string) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(8<<20))
	return req.MultipartForm.File["files"]
}

func TestCreateAgent_WithFiles(t *testing.T) {
	uc, _, docRepo, files, idx := newFixture()

	req := &entity.CreateAgentRequest{
		UserID: "user-1",
		Name:   "Physics Tutor",
		Prompt: "You are a tutor.",
		Files:  multipartFiles(t, map[string]string{"notes.txt": "some notes"}),
	}

	agent, result, err := uc.CreateAgent(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, agent.ID)
	assert.Equal(t, "user-1", agent.UserID)
	require.Len(t, agent.Documents, 1)
	assert.Equal(t, "notes.txt", agent.Documents[0].Filename)

	assert.Len(t, docRepo.docs, 1)
	assert.Len(t, files.saved, 1)
	assert.Len(t, idx.indexed[agent.ID], 1)
	assert.Equal(t, entity.CollectionName(agent.ID), result.Collection)
}

func TestCreateAgent_Validation(t *testing.T) {
	uc, _, _, _, _ := newFixture()

	_, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{UserID: "u", Prompt: "p"})
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, _, err = uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{UserID: "u", Name: "n"})
	assert.ErrorIs(t, err, entity.ErrMissingField)

	_, _, err = uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "u", Name: "n", Prompt: "p",
		Files: multipartFiles(t, map[string]string{"evil.exe": "binary"}),
	})
	assert.ErrorIs(t, err, entity.ErrInvalidExtension)
}

func TestDeleteAgent_Cascades(t *testing.T) {
	uc, agents, _, files, idx := newFixture()

	agent, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "user-1", Name: "A", Prompt: "p",
		Files: multipartFiles(t, map[string]string{"a.txt": "content"}),
	})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteAgent(context.Background(), agent.ID, "user-1"))

	assert.Empty(t, agents.agents)
	assert.Contains(t, idx.removed, agent.ID)
	assert.Contains(t, files.removedAgent, agent.ID)

	// Wrong owner cannot delete.
	agent2, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "user-1", Name: "B", Prompt: "p",
	})
	require.NoError(t, err)
	err = uc.DeleteAgent(context.Background(), agent2.ID, "user-2")
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)
}

func TestAddAndDeleteFile(t *testing.T) {
	uc, _, docRepo, files, idx := newFixture()

	agent, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "user-1", Name: "A", Prompt: "p",
	})
	require.NoError(t, err)

	docs, result, err := uc.AddFiles(context.Background(), &entity.AddFilesRequest{
		UserID:  "user-1",
		AgentID: agent.ID,
		Files:   multipartFiles(t, map[string]string{"extra.md": "# extra"}),
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, result.ChunksWritten)

	require.NoError(t, uc.DeleteFile(context.Background(), "user-1", agent.ID, docs[0].ID))
	assert.Empty(t, docRepo.docs)
	assert.Empty(t, files.saved)
	assert.Contains(t, idx.removedDocs, docs[0].ID)

	err = uc.DeleteFile(context.Background(), "user-1", agent.ID, docs[0].ID)
	assert.ErrorIs(t, err, entity.ErrDocumentNotFound)
}

func TestUpdateAgent_PromptWithoutReindex(t *testing.T) {
	uc, _, _, _, idx := newFixture()

	agent, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "user-1", Name: "A", Prompt: "old prompt",
	})
	require.NoError(t, err)

	updated, _, err := uc.UpdateAgent(context.Background(), &entity.UpdateAgentRequest{
		UserID:  "user-1",
		AgentID: agent.ID,
		Prompt:  "new prompt",
	})
	require.NoError(t, err)

	assert.Equal(t, "new prompt", updated.Prompt)
	assert.Equal(t, "A", updated.Name)
	assert.Empty(t, idx.indexed[agent.ID])
}

func TestDownloadFile(t *testing.T) {
	uc, _, _, _, _ := newFixture()

	agent, _, err := uc.CreateAgent(context.Background(), &entity.CreateAgentRequest{
		UserID: "user-1", Name: "A", Prompt: "p",
		Files: multipartFiles(t, map[string]string{"doc.txt": "file body"}),
	})
	require.NoError(t, err)
	require.Len(t, agent.Documents, 1)

	reader, doc, err := uc.DownloadFile(context.Background(), "user-1", agent.ID, agent.Documents[0].ID)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(data))
	assert.Equal(t, "doc.txt", doc.Filename)

	_, _, err = uc.DownloadFile(context.Background(), "user-2", agent.ID, agent.Documents[0].ID)
	assert.ErrorIs(t, err, entity.ErrAgentNotFound)
}
