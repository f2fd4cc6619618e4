package chunkstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

func chunk(id, docID string, vec []float32) entity.Chunk {
	return entity.Chunk{
		ID:         id,
		DocumentID: docID,
		Filename:   docID + ".pdf",
		Text:       "text of " + id,
		Page:       1,
		Embedding:  vec,
	}
}

func TestMemoryStore_QueryOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{
		chunk("d1:1:0", "d1", []float32{1, 0, 0}),
		chunk("d1:1:1", "d1", []float32{0.9, 0.1, 0}),
		chunk("d1:1:2", "d1", []float32{0, 1, 0}),
		chunk("d1:1:3", "d1", []float32{0, 0, 1}),
	}))

	got, err := store.Query(ctx, "agent_a", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1:1:0", got[0].Chunk.ID)
	assert.Equal(t, "d1:1:1", got[1].Chunk.ID)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}

func TestMemoryStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{chunk("a:1:0", "a", []float32{1, 0})}))
	require.NoError(t, store.Upsert(ctx, "agent_b", []entity.Chunk{chunk("b:1:0", "b", []float32{1, 0})}))

	got, err := store.Query(ctx, "agent_a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a:1:0", got[0].Chunk.ID)
}

func TestMemoryStore_MissingCollectionYieldsNoResults(t *testing.T) {
	store := NewMemoryStore(2)

	got, err := store.Query(context.Background(), "agent_missing", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore_UpsertReplacesSameID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{chunk("d1:1:0", "d1", []float32{1, 0})}))
	updated := chunk("d1:1:0", "d1", []float32{0, 1})
	updated.Text = "revised"
	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{updated}))

	assert.Equal(t, 1, store.Count("agent_a"))
	got, err := store.Query(ctx, "agent_a", []float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "revised", got[0].Chunk.Text)
}

func TestMemoryStore_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{
		chunk("d1:1:0", "d1", []float32{1, 0}),
		chunk("d1:1:1", "d1", []float32{0, 1}),
		chunk("d2:1:0", "d2", []float32{1, 1}),
	}))

	require.NoError(t, store.DeleteByDocument(ctx, "agent_a", "d1"))

	assert.Equal(t, 1, store.Count("agent_a"))
	got, err := store.Query(ctx, "agent_a", []float32{1, 1}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d2", got[0].Chunk.DocumentID)

	// Deleting from a missing collection is a no-op.
	assert.NoError(t, store.DeleteByDocument(ctx, "agent_gone", "d1"))
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	err := store.Upsert(ctx, "agent_a", []entity.Chunk{chunk("d1:1:0", "d1", []float32{1, 0})})
	assert.ErrorIs(t, err, entity.ErrDimensionMismatch)

	_, err = store.Query(ctx, "agent_a", []float32{1, 0}, 5)
	assert.ErrorIs(t, err, entity.ErrDimensionMismatch)
}

func TestMemoryStore_DeleteCollection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, "agent_a", []entity.Chunk{chunk("d1:1:0", "d1", []float32{1, 0})}))
	require.NoError(t, store.DeleteCollection(ctx, "agent_a"))

	got, err := store.Query(ctx, "agent_a", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, store.DeleteCollection(ctx, "agent_a"))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
