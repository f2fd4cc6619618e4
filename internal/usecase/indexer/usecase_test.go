package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apostol-ai/agent-backend/internal/chunkstore"
	"github.com/apostol-ai/agent-backend/internal/entity"
	"github.com/apostol-ai/agent-backend/internal/ingest"
	"github.com/apostol-ai/agent-backend/internal/integration/embedding"
)

type stubLoader struct {
	blocks map[string][]entity.RawBlock
	errs   map[string]error
}

func (s *stubLoader) Load(_ context.Context, path string) ([]entity.RawBlock, error) {
	if err, ok := s.errs[path]; ok {
		return nil, err
	}
	return s.blocks[path], nil
}

const testDim = 64

func newTestUsecase(loader Loader, store ChunkStore) *IndexerUsecase {
	return NewUsecase(
		loader,
		ingest.NewChunker(200, 50),
		embedding.NewMockConnector(testDim, zap.NewNop()),
		store,
		zap.NewNop(),
	)
}

func TestIndexDocuments_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{blocks: map[string][]entity.RawBlock{
		"/files/physics101.pdf": {
			{Text: "Newton's laws describe motion and inertia.", Page: 1},
			{Text: "Thermodynamics is about heat transfer and entropy.", Page: 2},
		},
	}}
	uc := newTestUsecase(loader, store)

	agentID := "7b1f0a2e-1111-2222-3333-444455556666"
	doc := entity.Document{ID: "doc-1", AgentID: agentID, Filename: "physics101.pdf", Path: "/files/physics101.pdf"}

	result, err := uc.IndexDocuments(ctx, agentID, []entity.Document{doc})
	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, result.ChunksWritten)
	assert.Equal(t, entity.CollectionName(agentID), result.Collection)

	// Retrieval finds the thematically closer chunk first.
	mock := embedding.NewMockConnector(testDim, zap.NewNop())
	vec, err := mock.EmbedQuery(ctx, "heat transfer and entropy")
	require.NoError(t, err)

	hits, err := store.Query(ctx, result.Collection, vec, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 2, hits[0].Chunk.Page)
	assert.Equal(t, "physics101.pdf", hits[0].Chunk.Filename)
}

func TestIndexDocuments_ReindexLeavesNoDuplicates(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{blocks: map[string][]entity.RawBlock{
		"/files/notes.txt": {
			{Text: "Version one of the notes, long enough to matter.", Page: 1},
			{Text: "A second paragraph with more content.", Page: 1},
		},
	}}
	uc := newTestUsecase(loader, store)

	agentID := "agent-1"
	doc := entity.Document{ID: "doc-1", Filename: "notes.txt", Path: "/files/notes.txt"}

	_, err := uc.IndexDocuments(ctx, agentID, []entity.Document{doc})
	require.NoError(t, err)
	before := store.Count(entity.CollectionName(agentID))

	// Re-upload with shorter content: old chunks must be gone.
	loader.blocks["/files/notes.txt"] = []entity.RawBlock{
		{Text: "Version two replaces everything.", Page: 1},
	}
	result, err := uc.IndexDocuments(ctx, agentID, []entity.Document{doc})
	require.NoError(t, err)

	assert.Equal(t, 2, before)
	assert.Equal(t, 1, result.ChunksWritten)
	assert.Equal(t, 1, store.Count(entity.CollectionName(agentID)))
}

func TestIndexDocuments_PartialFailureContinues(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{
		blocks: map[string][]entity.RawBlock{
			"/files/good.txt": {{Text: "Readable content survives the batch.", Page: 1}},
		},
		errs: map[string]error{
			"/files/bad.pdf": fmt.Errorf("load bad.pdf: %w", entity.ErrCorruptDocument),
		},
	}
	uc := newTestUsecase(loader, store)

	docs := []entity.Document{
		{ID: "doc-bad", Filename: "bad.pdf", Path: "/files/bad.pdf"},
		{ID: "doc-good", Filename: "good.txt", Path: "/files/good.txt"},
	}

	result, err := uc.IndexDocuments(ctx, "agent-1", docs)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksWritten)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "doc-bad", result.Failed[0].DocumentID)
	assert.Equal(t, "no extractable text", result.Failed[0].Reason)
	assert.True(t, errors.Is(result.Failed[0].Err, entity.ErrCorruptDocument))
}

func TestIndexDocuments_UnsupportedFormatReason(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{errs: map[string]error{
		"/files/sheet.xlsx": fmt.Errorf("%w: .xlsx", entity.ErrUnsupportedFormat),
	}}
	uc := newTestUsecase(loader, store)

	result, err := uc.IndexDocuments(ctx, "agent-1", []entity.Document{
		{ID: "doc-1", Filename: "sheet.xlsx", Path: "/files/sheet.xlsx"},
	})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "unsupported format", result.Failed[0].Reason)
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{blocks: map[string][]entity.RawBlock{
		"/files/a.txt": {{Text: "Document a content.", Page: 1}},
		"/files/b.txt": {{Text: "Document b content.", Page: 1}},
	}}
	uc := newTestUsecase(loader, store)

	agentID := "agent-1"
	_, err := uc.IndexDocuments(ctx, agentID, []entity.Document{
		{ID: "doc-a", Filename: "a.txt", Path: "/files/a.txt"},
		{ID: "doc-b", Filename: "b.txt", Path: "/files/b.txt"},
	})
	require.NoError(t, err)

	require.NoError(t, uc.RemoveDocument(ctx, agentID, "doc-a"))
	assert.Equal(t, 1, store.Count(entity.CollectionName(agentID)))

	// Removing an unindexed document is a no-op.
	assert.NoError(t, uc.RemoveDocument(ctx, agentID, "doc-missing"))
}

func TestRemoveAgent(t *testing.T) {
	ctx := context.Background()
	store := chunkstore.NewMemoryStore(testDim)
	loader := &stubLoader{blocks: map[string][]entity.RawBlock{
		"/files/a.txt": {{Text: "Some content here.", Page: 1}},
	}}
	uc := newTestUsecase(loader, store)

	agentID := "agent-1"
	_, err := uc.IndexDocuments(ctx, agentID, []entity.Document{
		{ID: "doc-a", Filename: "a.txt", Path: "/files/a.txt"},
	})
	require.NoError(t, err)

	require.NoError(t, uc.RemoveAgent(ctx, agentID))
	assert.Equal(t, 0, store.Count(entity.CollectionName(agentID)))
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("agent-1")
			counter++
			km.Unlock("agent-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	// Released entries are reclaimed.
	km.mu.Lock()
	assert.Empty(t, km.locks)
	km.mu.Unlock()
}
