// Package app builds the pipeline components from configuration. Both
// commands share it so the stages are wired the same way everywhere.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bull/video-rag/internal/cache"
	"github.com/bull/video-rag/internal/clipstore"
	"github.com/bull/video-rag/internal/config"
	"github.com/bull/video-rag/internal/docstore"
	"github.com/bull/video-rag/internal/embedding"
	"github.com/bull/video-rag/internal/llm"
	"github.com/bull/video-rag/internal/query"
	"github.com/bull/video-rag/internal/source"
	"github.com/bull/video-rag/internal/storage"
	"github.com/bull/video-rag/internal/video"
)

// Source kinds accepted by NewSource.
const (
	SourceTar    = "tar"
	SourceGitHub = "github"
)

// ErrUnknownSource is returned for a source kind other than tar or github.
var ErrUnknownSource = errors.New("unknown sample source")

// OpenVectorStore connects to Qdrant.
func OpenVectorStore(cfg *config.Config) (*storage.QdrantStorage, error) {
	return storage.NewQdrantStorage(storage.Options{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Collection: cfg.Qdrant.Collection,
	})
}

// OpenDocStore connects to Cassandra and makes sure the chunk table exists.
func OpenDocStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*docstore.Store, error) {
	store, err := docstore.Connect(docstore.Options{
		Hosts:       cfg.Cassandra.Hosts,
		Keyspace:    cfg.Cassandra.Keyspace,
		Table:       cfg.Cassandra.Table,
		Consistency: cfg.Cassandra.Consistency,
		Timeout:     cfg.Cassandra.Timeout(),
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

// NewEmbedder builds the configured embedding provider. oa may be nil.
func NewEmbedder(cfg *config.Config, oa *embedding.Client) (embedding.Embedder, error) {
	return embedding.New(embedding.Options{
		Provider:    cfg.Embedding.Provider,
		Model:       cfg.Embedding.Model,
		VisionModel: cfg.Embedding.VisionModel,
		BatchSize:   cfg.Embedding.BatchSize,
	}, oa)
}

// NewSource returns the sample source of the given kind.
func NewSource(cfg *config.Config, kind string, logger *slog.Logger) (source.Source, error) {
	switch kind {
	case "", SourceTar:
		return source.NewTarSource(cfg.Ingest.Dataset, os.TempDir(), logger), nil
	case SourceGitHub:
		if cfg.Ingest.GitHubOwner == "" || cfg.Ingest.GitHubRepo == "" {
			return nil, fmt.Errorf("github source needs ingest.github_owner and ingest.github_repo")
		}
		client, err := source.NewGitHubClient()
		if err != nil {
			return nil, err
		}
		return source.NewGitHubSource(client, cfg.Ingest.GitHubOwner, cfg.Ingest.GitHubRepo,
			cfg.Ingest.GitHubPath, os.TempDir(), logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, kind)
	}
}

// CollectionEnsurer creates the vector collection when it is missing.
type CollectionEnsurer interface {
	EnsureCollection(ctx context.Context, dim int) error
}

// prepareIndex makes sure the collection exists before the first embed run,
// so early questions find no context instead of failing on a missing collection.
func prepareIndex(ctx context.Context, index CollectionEnsurer, embedder embedding.Embedder) error {
	if err := index.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}
	return nil
}

// QueryStack is a query service with the connections it owns.
type QueryStack struct {
	Service *query.Service
	Vectors *storage.QdrantStorage
	Cache   *cache.AnswerCache // nil when not configured
}

// Close releases every connection of the stack.
func (q *QueryStack) Close() {
	if q.Cache != nil {
		q.Cache.Close()
	}
	q.Vectors.Close()
}

// NewQueryStack wires the query service. The answer cache and clip publisher
// are optional: they are skipped when unconfigured and, for the cache, when
// Redis is unreachable.
func NewQueryStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*QueryStack, error) {
	if logger == nil {
		logger = slog.Default()
	}

	oa, err := embedding.NewClient()
	if err != nil {
		return nil, err
	}
	embedder, err := NewEmbedder(cfg, oa)
	if err != nil {
		return nil, err
	}

	vectors, err := OpenVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	stack := &QueryStack{Vectors: vectors}

	if err := prepareIndex(ctx, vectors, embedder); err != nil {
		stack.Close()
		return nil, err
	}

	answerer := llm.NewAnswerer(oa.Client(), llm.Options{
		Model:       cfg.LLM.Model,
		Temperature: &cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, logger)

	var answers query.Cache
	if cfg.Cache.Addr != "" {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.CacheTTL(),
		})
		if err != nil {
			logger.Warn("answer cache disabled", "error", err)
		} else {
			stack.Cache = c
			answers = c
		}
	}

	var publisher query.Publisher
	if cfg.ClipStore.Bucket != "" {
		p, err := clipstore.New(ctx, clipstore.Options{
			Bucket:       cfg.ClipStore.Bucket,
			Prefix:       cfg.ClipStore.Prefix,
			Region:       cfg.ClipStore.Region,
			UsePathStyle: cfg.ClipStore.UsePathStyle,
		})
		if err != nil {
			stack.Close()
			return nil, fmt.Errorf("clip store: %w", err)
		}
		publisher = p
	}

	stack.Service = query.NewService(embedder, vectors, answerer, video.NewClipper(logger), answers, publisher,
		query.Options{
			TopK:         cfg.Query.TopK,
			GapTolerance: cfg.Query.GapTolerance,
			VideosDir:    cfg.Query.VideosDir,
			ClipsDir:     cfg.Query.ClipsDir,
		}, logger)
	return stack, nil
}
