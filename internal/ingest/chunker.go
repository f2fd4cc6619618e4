package ingest

import (
	"strings"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

const (
	// DefaultChunkMaxLen is the default chunk size in characters.
	DefaultChunkMaxLen = 1000
	// DefaultChunkOverlap is the default overlap between consecutive chunks.
	DefaultChunkOverlap = 200
)

// Chunker splits extracted blocks into bounded, overlapping chunks.
// Identical input always produces identical chunks, which keeps point
// IDs stable across re-ingestion.
type Chunker struct {
	maxLen  int
	overlap int
}

func NewChunker(maxLen, overlap int) *Chunker {
	if maxLen <= 0 {
		maxLen = DefaultChunkMaxLen
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= maxLen {
		overlap = maxLen / 4
	}
	return &Chunker{maxLen: maxLen, overlap: overlap}
}

// Split chunks the blocks of one document. Chunk indexes are assigned
// in document order and never reused, so entity.ChunkID stays unique
// within the document.
func (c *Chunker) Split(documentID, filename string, blocks []entity.RawBlock) []entity.Chunk {
	var chunks []entity.Chunk
	index := 0
	for _, block := range blocks {
		for _, text := range c.splitText(block.Text) {
			chunks = append(chunks, entity.Chunk{
				ID:         entity.ChunkID(documentID, block.Page, index),
				DocumentID: documentID,
				Filename:   filename,
				Text:       text,
				Page:       block.Page,
				Index:      index,
			})
			index++
		}
	}
	return chunks
}

// splitText cuts a block into windows of at most maxLen runes. Each
// window prefers to end on a sentence boundary when one exists in its
// second half; the next window starts overlap runes back.
func (c *Chunker) splitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.maxLen {
		return []string{text}
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + c.maxLen
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSentenceEnd(runes[start:end]); cut > c.maxLen/2 {
			end = start + cut
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// lastSentenceEnd returns the position just past the last sentence
// terminator in window, or 0 when there is none.
func lastSentenceEnd(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}
