package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

func TestChunker_ShortBlockSingleChunk(t *testing.T) {
	c := NewChunker(200, 50)
	blocks := []entity.RawBlock{{Text: "Newton's first law describes inertia.", Page: 1}}

	chunks := c.Split("doc-1", "physics101.pdf", blocks)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Newton's first law describes inertia.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "doc-1:1:0", chunks[0].ID)
}

func TestChunker_RespectsMaxLenAndOverlap(t *testing.T) {
	c := NewChunker(200, 50)
	sentence := "The quick brown fox jumps over the lazy dog near the riverbank. "
	text := strings.TrimSpace(strings.Repeat(sentence, 12))
	blocks := []entity.RawBlock{{Text: text, Page: 1}}

	chunks := c.Split("doc-1", "physics101.pdf", blocks)

	require.GreaterOrEqual(t, len(chunks), 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 200, "chunk %d exceeds max length", ch.Index)
	}
	// Each chunk starts inside the previous one's window.
	for i := 1; i < len(chunks); i++ {
		prefix := string([]rune(chunks[i].Text)[:20])
		assert.Contains(t, chunks[i-1].Text, prefix, "chunks %d and %d do not overlap", i-1, i)
		assert.Contains(t, text, chunks[i].Text)
	}
}

func TestChunker_PrefersSentenceBoundary(t *testing.T) {
	c := NewChunker(200, 50)
	sentence := "Energy is conserved in every closed system under observation. "
	text := strings.TrimSpace(strings.Repeat(sentence, 10))
	blocks := []entity.RawBlock{{Text: text, Page: 2}}

	chunks := c.Split("doc-1", "physics101.pdf", blocks)

	require.Greater(t, len(chunks), 1)
	// Every chunk except possibly the last ends on a sentence terminator.
	for _, ch := range chunks[:len(chunks)-1] {
		last := ch.Text[len(ch.Text)-1]
		assert.Contains(t, ".!?", string(last), "chunk %d does not end a sentence: %q", ch.Index, ch.Text)
	}
}

func TestChunker_Deterministic(t *testing.T) {
	c := NewChunker(200, 50)
	text := strings.Repeat("Deterministic chunking makes point identifiers stable. ", 15)
	blocks := []entity.RawBlock{{Text: text, Page: 1}, {Text: text, Page: 2}}

	first := c.Split("doc-1", "notes.txt", blocks)
	second := c.Split("doc-1", "notes.txt", blocks)

	assert.Equal(t, first, second)
}

func TestChunker_PageTagsAndUniqueIDs(t *testing.T) {
	c := NewChunker(200, 50)
	long := strings.Repeat("Thermodynamics concerns heat and work in physical systems. ", 10)
	blocks := []entity.RawBlock{
		{Text: long, Page: 1},
		{Text: long, Page: 2},
		{Text: "Closing remarks.", Page: 3},
	}

	chunks := c.Split("doc-1", "physics101.pdf", blocks)

	seen := map[string]bool{}
	pages := map[int]bool{}
	for i, ch := range chunks {
		assert.False(t, seen[ch.ID], "duplicate chunk id %s", ch.ID)
		seen[ch.ID] = true
		pages[ch.Page] = true
		assert.Equal(t, i, ch.Index)
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, pages)
}

func TestChunker_OverlapClampedToSaneValue(t *testing.T) {
	c := NewChunker(100, 100)
	text := strings.Repeat("a", 500)

	chunks := c.Split("doc-1", "a.txt", []entity.RawBlock{{Text: text, Page: 1}})

	// Must terminate and cover the full text.
	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 20)
}

func TestChunker_EmptyBlocksProduceNothing(t *testing.T) {
	c := NewChunker(200, 50)
	assert.Empty(t, c.Split("doc-1", "empty.txt", nil))
	assert.Empty(t, c.Split("doc-1", "empty.txt", []entity.RawBlock{{Text: "", Page: 1}}))
}
