// Package indexer is the embed stage: it reads every stored chunk, fuses its
// text and frame embeddings and rebuilds the vector index from them.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/video-rag/internal/chunker"
	"github.com/bull/video-rag/internal/embedding"
	"github.com/bull/video-rag/internal/storage"
)

// Status values reported by a run.
const (
	StatusUploaded = "uploaded"
	StatusNoop     = "noop"
)

// DefaultBatchSize is the number of chunks embedded per provider round trip.
const DefaultBatchSize = 48

// ChunkSource scans the document store.
type ChunkSource interface {
	ScanAll(ctx context.Context, fn func(chunker.Chunk) error) error
}

// VectorIndex is the subset of the vector store the embed stage writes to.
type VectorIndex interface {
	RecreateCollection(ctx context.Context, dim int) error
	UpsertPoints(ctx context.Context, points []storage.ChunkPoint) error
}

// IndexResult contains statistics about an embed run.
type IndexResult struct {
	Status        string
	TotalChunks   int
	SkippedChunks int // Missing a frame or text
	Points        int
	Dimension     int
	FailedChunks  []FailedChunk
	Duration      time.Duration
}

// FailedChunk represents a chunk that could not be embedded.
type FailedChunk struct {
	VideoID    string
	ChunkIndex int
	Reason     string
}

// Pipeline orchestrates the embed stage from document store to vector index.
type Pipeline struct {
	chunks    ChunkSource
	embedder  embedding.Embedder
	index     VectorIndex
	batchSize int
	logger    *slog.Logger
}

// NewPipeline creates a new embed pipeline with the given components.
func NewPipeline(
	chunks ChunkSource,
	embedder embedding.Embedder,
	index VectorIndex,
	batchSize int,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		chunks:    chunks,
		embedder:  embedder,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// IndexAll embeds every stored chunk that has both text and a frame and
// replaces the collection with the result. Chunks missing either are skipped
// silently; chunks whose embedding fails are logged and skipped. When no
// point survives, the collection is left untouched and the status is noop.
func (p *Pipeline) IndexAll(ctx context.Context) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}

	var pending []chunker.Chunk
	var points []storage.ChunkPoint

	flush := func() {
		points = append(points, p.embedBatch(ctx, pending, result)...)
		pending = pending[:0]
	}

	p.logger.Info("Starting embedding", "dimension", p.embedder.Dimension())

	err := p.chunks.ScanAll(ctx, func(c chunker.Chunk) error {
		result.TotalChunks++
		if !c.Embeddable() {
			result.SkippedChunks++
			return nil
		}
		pending = append(pending, c)
		if len(pending) >= p.batchSize {
			flush()
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	if len(pending) > 0 {
		flush()
	}

	result.Duration = time.Since(start)
	if len(points) == 0 {
		result.Status = StatusNoop
		p.logger.Info("No valid data points found for embedding and upload",
			"chunks", result.TotalChunks, "skipped", result.SkippedChunks, "failed", len(result.FailedChunks))
		return result, nil
	}

	// The collection takes the dimension of the vectors actually produced
	result.Dimension = len(points[0].Vector)
	if err := p.index.RecreateCollection(ctx, result.Dimension); err != nil {
		return nil, fmt.Errorf("recreate collection: %w", err)
	}
	if err := p.index.UpsertPoints(ctx, points); err != nil {
		return nil, fmt.Errorf("upsert points: %w", err)
	}

	result.Points = len(points)
	result.Status = StatusUploaded
	result.Duration = time.Since(start)
	p.logger.Info("Embedding complete",
		"points", result.Points,
		"skipped", result.SkippedChunks,
		"failed", len(result.FailedChunks),
		"dimension", result.Dimension,
		"duration", result.Duration,
	)
	return result, nil
}

// embedBatch embeds one batch. When the batched call fails the chunks are
// retried one by one so a single bad chunk does not sink its neighbours.
func (p *Pipeline) embedBatch(ctx context.Context, batch []chunker.Chunk, result *IndexResult) []storage.ChunkPoint {
	points, err := p.embedChunks(ctx, batch)
	if err == nil {
		return points
	}
	if len(batch) == 1 {
		p.fail(batch[0], err, result)
		return nil
	}

	p.logger.Warn("Batch embedding failed, retrying per chunk", "size", len(batch), "error", err)
	var out []storage.ChunkPoint
	for _, c := range batch {
		pts, err := p.embedChunks(ctx, []chunker.Chunk{c})
		if err != nil {
			p.fail(c, err, result)
			continue
		}
		out = append(out, pts...)
	}
	return out
}

func (p *Pipeline) fail(c chunker.Chunk, err error, result *IndexResult) {
	p.logger.Warn("Failed to embed chunk", "video_id", c.VideoID, "chunk_index", c.Index, "error", err)
	result.FailedChunks = append(result.FailedChunks, FailedChunk{
		VideoID:    c.VideoID,
		ChunkIndex: c.Index,
		Reason:     err.Error(),
	})
}

func (p *Pipeline) embedChunks(ctx context.Context, batch []chunker.Chunk) ([]storage.ChunkPoint, error) {
	texts := make([]string, len(batch))
	frames := make([][]byte, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
		frames[i] = c.Frame
	}

	textVecs, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("text embeddings: %w", err)
	}
	imageVecs, err := p.embedder.EmbedImages(ctx, frames)
	if err != nil {
		return nil, fmt.Errorf("image embeddings: %w", err)
	}
	if len(textVecs) != len(batch) || len(imageVecs) != len(batch) {
		return nil, fmt.Errorf("%w: %d chunks, %d text, %d image vectors",
			embedding.ErrCountMismatch, len(batch), len(textVecs), len(imageVecs))
	}

	points := make([]storage.ChunkPoint, len(batch))
	for i, c := range batch {
		fused, err := embedding.Fuse(textVecs[i], imageVecs[i])
		if err != nil {
			return nil, err
		}
		points[i] = storage.ChunkPoint{
			VideoID:    c.VideoID,
			ChunkIndex: c.Index,
			Title:      c.Title,
			Start:      c.Start,
			End:        c.End,
			Text:       c.Text,
			FilePath:   c.SourceRef,
			Language:   c.Language,
			Vector:     fused,
		}
	}
	return points, nil
}
