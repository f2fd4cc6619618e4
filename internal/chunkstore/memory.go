package chunkstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

var _ Store = &MemoryStore{}

// MemoryStore is a brute-force in-memory Store. It backs the mock
// runtime mode and the tests; behavior mirrors QdrantStore, including
// the missing-collection and dimension rules.
type MemoryStore struct {
	mu          sync.RWMutex
	vectorSize  int
	collections map[string]map[string]entity.Chunk
}

func NewMemoryStore(vectorSize int) *MemoryStore {
	return &MemoryStore{
		vectorSize:  vectorSize,
		collections: make(map[string]map[string]entity.Chunk),
	}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]entity.Chunk)
	}
	return nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, collection string, chunks []entity.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, ok := s.collections[collection]
	if !ok {
		points = make(map[string]entity.Chunk)
		s.collections[collection] = points
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != s.vectorSize {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection expects %d",
				entity.ErrDimensionMismatch, ch.ID, len(ch.Embedding), s.vectorSize)
		}
		points[ch.ID] = ch
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, collection string, vector []float32, limit int) ([]entity.ScoredChunk, error) {
	if len(vector) != s.vectorSize {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection expects %d",
			entity.ErrDimensionMismatch, len(vector), s.vectorSize)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}

	scored := make([]entity.ScoredChunk, 0, len(points))
	for _, ch := range points {
		scored = append(scored, entity.ScoredChunk{
			Chunk: ch,
			Score: cosineSimilarity(vector, ch.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *MemoryStore) DeleteByDocument(_ context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	points, ok := s.collections[collection]
	if !ok {
		return nil
	}
	for id, ch := range points {
		if ch.DocumentID == documentID {
			delete(points, id)
		}
	}
	return nil
}

// Count reports how many chunks a collection holds. Test helper.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
