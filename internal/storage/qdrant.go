package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/video-rag/internal/retrieval"
)

// upsertBatchSize bounds the number of points sent per Upsert call.
const upsertBatchSize = 100

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	host       string
	port       int
}

// Options configures NewQdrantStorage. Zero values fall back to defaults.
type Options struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(opts Options) (*QdrantStorage, error) {
	if opts.Collection == "" {
		opts.Collection = CollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		UseTLS: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: opts.Collection,
		host:       opts.Host,
		port:       opts.Port,
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// Collection returns the name of the collection this storage writes to.
func (s *QdrantStorage) Collection() string {
	return s.collection
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the collection with dim-sized cosine vectors if it
// does not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context, dim int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}
	return s.create(ctx, dim)
}

// RecreateCollection drops the collection, if present, and creates it empty
// with dim-sized vectors. The embed stage rebuilds the whole index each run.
func (s *QdrantStorage) RecreateCollection(ctx context.Context, dim int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}
	return s.create(ctx, dim)
}

func (s *QdrantStorage) create(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("%w: collection dimension %d", ErrDimensionMismatch, dim)
	}

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// video_id is the only field queries filter on
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "video_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field video_id: %w", err)
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// UpsertPoints stores chunk points in batches of 100. All vectors must share
// the dimension of the first one.
func (s *QdrantStorage) UpsertPoints(ctx context.Context, points []ChunkPoint) error {
	if len(points) == 0 {
		return nil
	}

	dim := len(points[0].Vector)
	for i, p := range points {
		if len(p.Vector) == 0 {
			return fmt.Errorf("%w: point %d (%s/%d)", ErrEmptyVector, i, p.VideoID, p.ChunkIndex)
		}
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(p.Vector), dim)
		}
	}

	for i := 0; i < len(points); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(points))

		batch := make([]*qdrant.PointStruct, 0, end-i)
		for _, p := range points[i:end] {
			batch = append(batch, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(PointID(p.VideoID, p.ChunkIndex)),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(payloadOf(p)),
			})
		}

		if err := s.upsertWithRetry(ctx, batch); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func payloadOf(p ChunkPoint) map[string]any {
	return map[string]any{
		"text":        p.Text,
		"video_id":    p.VideoID,
		"title":       p.Title,
		"start":       p.Start,
		"end":         p.End,
		"filepath":    p.FilePath,
		"chunk_index": p.ChunkIndex,
		"language":    p.Language,
	}
}

// Search returns the limit nearest chunks to vector, best first.
func (s *QdrantStorage) Search(ctx context.Context, vector []float32, limit int) ([]retrieval.Hit, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]retrieval.Hit, 0, len(results))
	for _, result := range results {
		hit := hitFromPayload(result.Payload)
		hit.Score = float64(result.Score)
		hits = append(hits, hit)
	}

	return hits, nil
}

// hitFromPayload maps a stored payload back to a search hit. Missing fields
// read as zero values.
func hitFromPayload(payload map[string]*qdrant.Value) retrieval.Hit {
	return retrieval.Hit{
		VideoID:  payload["video_id"].GetStringValue(),
		Title:    payload["title"].GetStringValue(),
		Start:    numberValue(payload["start"]),
		End:      numberValue(payload["end"]),
		Text:     payload["text"].GetStringValue(),
		FilePath: payload["filepath"].GetStringValue(),
	}
}

// numberValue reads a payload number whether it was stored as a double or an integer.
func numberValue(v *qdrant.Value) float64 {
	if v == nil {
		return 0
	}
	if _, ok := v.GetKind().(*qdrant.Value_IntegerValue); ok {
		return float64(v.GetIntegerValue())
	}
	return v.GetDoubleValue()
}

// CollectionInfo contains collection statistics
type CollectionInfo struct {
	Name        string
	PointsCount uint64
}

// GetCollectionInfo retrieves collection statistics including total points count.
// Returns ErrCollectionNotFound when the embed stage has not run yet.
func (s *QdrantStorage) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &CollectionInfo{
		Name:        s.collection,
		PointsCount: info.GetPointsCount(),
	}, nil
}
