package entity

import (
	"fmt"
	"strings"
)

// RawBlock is a unit of text extracted from a source document before
// chunking. Page is 1-based for paged formats; Offset is the byte offset of
// the block within the extracted text for flat formats.
type RawBlock struct {
	Text   string
	Page   int
	Offset int
}

// Chunk is a bounded span of document text plus its embedding, stored in an
// agent's vector collection for similarity retrieval. Chunks are immutable
// once written; re-ingesting a document replaces them wholesale.
type Chunk struct {
	ID         string
	DocumentID string
	Filename   string
	Text       string
	Page       int
	Index      int
	Embedding  []float32
}

// ChunkID builds the deterministic point identifier for a chunk. Determinism
// here is what makes re-ingestion idempotent: the same file always produces
// the same IDs, so replace-by-document leaves no strays behind.
func ChunkID(documentID string, page, index int) string {
	return fmt.Sprintf("%s:%d:%d", documentID, page, index)
}

// ScoredChunk is a retrieval hit ordered by similarity, highest first.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// SourceRef is a citation attached to a generated answer.
type SourceRef struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float32 `json:"score"`
}

// CollectionName derives the vector collection handle for an agent. One
// collection per agent, never shared; the handle must satisfy the store's
// ^[a-z0-9_]{1,64}$ naming rule.
func CollectionName(agentID string) string {
	return "agent_" + strings.ReplaceAll(strings.ToLower(agentID), "-", "")
}

// IndexResult summarizes one indexing run over a batch of documents.
// Documents that failed are reported individually; successes written before a
// failure are kept (no multi-document transaction).
type IndexResult struct {
	Collection    string          `json:"collection"`
	ChunksWritten int             `json:"chunks_written"`
	Failed        []DocumentError `json:"failed,omitempty"`
}

// DocumentError records a per-document ingestion or indexing failure.
type DocumentError struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Err        error  `json:"-"`
	Reason     string `json:"reason"`
}
