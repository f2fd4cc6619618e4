package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector embeds by hashing tokens into a fixed-size bag of
// words. Similar texts land near each other, identical texts embed
// identically, and no external service is needed. Used for mock mode
// and for tests of the indexing and retrieval paths.
type MockConnector struct {
	dimension int
	logger    *zap.Logger
}

var _ Embedder = &MockConnector{}

func NewMockConnector(dimension int, logger *zap.Logger) *MockConnector {
	if dimension < 1 {
		dimension = 64
	}
	return &MockConnector{dimension: dimension, logger: logger}
}

func (m *MockConnector) Dimension() int {
	return m.dimension
}

func (m *MockConnector) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding texts", zap.Int("count", len(texts)))

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = m.embed(text)
	}
	return vectors, nil
}

func (m *MockConnector) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctxzap.Debug(ctx, "[MOCK] embedding query", zap.Int("length", len(text)))
	return m.embed(text), nil
}

func (m *MockConnector) embed(text string) []float32 {
	vec := make([]float32, m.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(token, ".,!?;:\"'()")))
		vec[int(h.Sum32())%m.dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
