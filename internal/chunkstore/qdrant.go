package chunkstore

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

var _ Store = &QdrantStore{}

const (
	payloadDocumentID = "document_id"
	payloadFilename   = "filename"
	payloadText       = "text"
	payloadPage       = "page"
	payloadChunkIndex = "chunk_index"
	payloadChunkID    = "chunk_id"

	maxMessageSize = 50 * 1024 * 1024
)

// QdrantStore implements Store on a qdrant gRPC connection. The client
// is created once and shared; collection existence is cached so the
// common path of writing into a known collection skips a round trip.
type QdrantStore struct {
	client     *qdrant.Client
	cfg        config.QdrantConfig
	vectorSize uint64
	known      *gocache.Cache
	logger     *zap.Logger
}

func NewQdrantStore(cfg config.QdrantConfig, vectorSize int, logger *zap.Logger) (*QdrantStore, error) {
	if vectorSize < 1 {
		return nil, fmt.Errorf("vector size must be positive, got %d", vectorSize)
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxMessageSize),
				grpc.MaxCallSendMsgSize(maxMessageSize),
			),
		},
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	client, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		cfg:        cfg,
		vectorSize: uint64(vectorSize),
		known:      gocache.New(10*time.Minute, 15*time.Minute),
		logger:     logger,
	}, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	if _, ok := s.known.Get(collection); ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	err := s.do(ctx, func() error {
		exists, err := s.collectionExists(ctx, collection)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.vectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return mapStoreError(err)
	}

	s.known.Set(collection, true, gocache.DefaultExpiration)
	return nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	s.known.Delete(collection)

	err := s.do(ctx, func() error {
		return s.client.DeleteCollection(ctx, collection)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return mapStoreError(err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, ch := range chunks {
		if uint64(len(ch.Embedding)) != s.vectorSize {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection expects %d",
				entity.ErrDimensionMismatch, ch.ID, len(ch.Embedding), s.vectorSize)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(ch.ID)),
			Vectors: qdrant.NewVectors(ch.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadChunkID:    {Kind: &qdrant.Value_StringValue{StringValue: ch.ID}},
				payloadDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: ch.DocumentID}},
				payloadFilename:   {Kind: &qdrant.Value_StringValue{StringValue: ch.Filename}},
				payloadText:       {Kind: &qdrant.Value_StringValue{StringValue: ch.Text}},
				payloadPage:       {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(ch.Page)}},
				payloadChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(ch.Index)}},
			},
		}
	}

	err := s.do(ctx, func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	})
	if err != nil {
		return mapStoreError(err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, collection string, vector []float32, limit int) ([]entity.ScoredChunk, error) {
	if uint64(len(vector)) != s.vectorSize {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection expects %d",
			entity.ErrDimensionMismatch, len(vector), s.vectorSize)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	var results []*qdrant.ScoredPoint
	err := s.do(ctx, func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(limit)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		// An agent with no indexed documents has no collection yet.
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, mapStoreError(err)
	}

	scored := make([]entity.ScoredChunk, 0, len(results))
	for _, r := range results {
		scored = append(scored, entity.ScoredChunk{
			Chunk: chunkFromPayload(r.Payload),
			Score: r.Score,
		})
	}
	return scored, nil
}

func (s *QdrantStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	err := s.do(ctx, func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: &qdrant.Filter{
						Must: []*qdrant.Condition{
							{
								ConditionOneOf: &qdrant.Condition_Field{
									Field: &qdrant.FieldCondition{
										Key: payloadDocumentID,
										Match: &qdrant.Match{
											MatchValue: &qdrant.Match_Keyword{Keyword: documentID},
										},
									},
								},
							},
						},
					},
				},
			},
		})
		return err
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return mapStoreError(err)
	}
	return nil
}

func (s *QdrantStore) collectionExists(ctx context.Context, collection string) (bool, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

// do runs op with retries on transient gRPC failures only.
func (s *QdrantStore) do(ctx context.Context, op func() error) error {
	opts := append(s.cfg.Retry.ToRetryOptions(),
		retry.Context(ctx),
		retry.RetryIf(isTransientError),
	)
	return retry.Do(op, opts...)
}

// isTransientError reports whether a gRPC failure is worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// mapStoreError folds transport failures into the store sentinel so
// callers can classify without importing grpc.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if isTransientError(err) {
		return fmt.Errorf("%w: %v", entity.ErrStoreUnavailable, err)
	}
	if status.Code(err) == codes.InvalidArgument {
		return fmt.Errorf("%w: %v", entity.ErrInvalidCollection, err)
	}
	return err
}

// pointID derives a stable UUID from the logical chunk ID. Qdrant only
// accepts UUID or integer point IDs, and the same chunk must map to
// the same point across re-ingestions.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func chunkFromPayload(payload map[string]*qdrant.Value) entity.Chunk {
	ch := entity.Chunk{}
	if v, ok := payload[payloadChunkID]; ok {
		ch.ID = v.GetStringValue()
	}
	if v, ok := payload[payloadDocumentID]; ok {
		ch.DocumentID = v.GetStringValue()
	}
	if v, ok := payload[payloadFilename]; ok {
		ch.Filename = v.GetStringValue()
	}
	if v, ok := payload[payloadText]; ok {
		ch.Text = v.GetStringValue()
	}
	if v, ok := payload[payloadPage]; ok {
		ch.Page = int(v.GetIntegerValue())
	}
	if v, ok := payload[payloadChunkIndex]; ok {
		ch.Index = int(v.GetIntegerValue())
	}
	return ch
}
