// Package ingest turns lecture samples into stored caption chunks: it parses
// each caption track, windows it, samples one frame per window and writes the
// chunks to the document store.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bull/video-rag/internal/caption"
	"github.com/bull/video-rag/internal/chunker"
	"github.com/bull/video-rag/internal/source"
)

// ChunkStore persists chunks for the embed stage.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []chunker.Chunk) error
}

// SamplerFactory returns the frame sampler for a local video file.
type SamplerFactory func(videoPath string) chunker.FrameSampler

// Result contains statistics about an ingest run.
type Result struct {
	Total     int
	Succeeded int
	Skipped   []FailedSample // Samples lacking a caption track, info or video
	Failed    []FailedSample
	Chunks    int
	Duration  time.Duration
}

// FailedSample represents a sample that was not ingested.
type FailedSample struct {
	Key    string
	Reason string
}

// Pipeline orchestrates ingestion from a sample source into the chunk store.
type Pipeline struct {
	source      source.Source
	chunker     *chunker.Chunker
	sampler     SamplerFactory
	store       ChunkStore
	concurrency int
	videosDir   string
	logger      *slog.Logger

	mu     sync.Mutex
	result *Result
	owners map[string]string // video id -> sample key that claimed it
}

// NewPipeline creates an ingest pipeline. concurrency bounds how many samples
// are processed at once; values below 1 mean one at a time.
func NewPipeline(
	src source.Source,
	ch *chunker.Chunker,
	sampler SamplerFactory,
	store ChunkStore,
	concurrency int,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		source:      src,
		chunker:     ch,
		sampler:     sampler,
		store:       store,
		concurrency: concurrency,
		logger:      logger,
	}
}

// WithVideosDir makes the pipeline keep each ingested video as
// <dir>/<id>/<id>.mp4, where the query stage cuts clips from.
func (p *Pipeline) WithVideosDir(dir string) *Pipeline {
	p.videosDir = dir
	return p
}

// Run ingests every sample the source yields. A failing sample is logged and
// recorded; the run continues. Only source errors and cancellation abort it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	p.result = &Result{}
	p.owners = make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	p.logger.Info("Starting ingestion", "window", p.chunker.Window(), "concurrency", p.concurrency)

	err := p.source.Samples(gctx, func(s source.Sample) error {
		p.mu.Lock()
		p.result.Total++
		p.mu.Unlock()

		g.Go(func() error {
			defer func() {
				if err := s.Close(); err != nil {
					p.logger.Warn("Failed to remove temp video", "key", s.Key, "error", err)
				}
			}()
			p.handle(gctx, s)
			return gctx.Err()
		})
		return gctx.Err()
	})
	waitErr := g.Wait()

	if err != nil {
		return p.result, fmt.Errorf("read samples: %w", err)
	}
	if waitErr != nil {
		return p.result, waitErr
	}

	p.result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"total", p.result.Total,
		"successful", p.result.Succeeded,
		"skipped", len(p.result.Skipped),
		"failed", len(p.result.Failed),
		"chunks", p.result.Chunks,
		"duration", p.result.Duration,
	)
	return p.result, nil
}

func (p *Pipeline) handle(ctx context.Context, s source.Sample) {
	if missing := s.Missing(); len(missing) > 0 {
		reason := "missing " + strings.Join(missing, ", ")
		p.logger.Warn("Skipping incomplete sample", "key", s.Key, "reason", reason)
		p.record(func(r *Result) {
			r.Skipped = append(r.Skipped, FailedSample{Key: s.Key, Reason: reason})
		})
		return
	}

	n, err := p.processSample(ctx, s)
	if err != nil {
		p.logger.Warn("Failed to process sample", "key", s.Key, "origin", s.Origin, "error", err)
		p.record(func(r *Result) {
			r.Failed = append(r.Failed, FailedSample{Key: s.Key, Reason: err.Error()})
		})
		return
	}

	p.record(func(r *Result) {
		r.Succeeded++
		r.Chunks += n
	})
}

func (p *Pipeline) record(update func(*Result)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	update(p.result)
}

// claim records that key owns videoID and reports the earlier owner when a
// different sample already claimed it in this run.
func (p *Pipeline) claim(videoID, key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owners == nil {
		p.owners = make(map[string]string)
	}
	prev, ok := p.owners[videoID]
	if ok && prev != key {
		return prev, true
	}
	p.owners[videoID] = key
	return "", false
}

// sampleVideoID keeps samples without an id apart: chunk rows and vector
// points are keyed by video id, so a shared unknown_id would overwrite them.
func sampleVideoID(id, key string) string {
	if id != source.UnknownID || key == "" {
		return id
	}
	return source.UnknownID + "_" + strings.ReplaceAll(key, "/", "_")
}

// processSample chunks and stores one sample, returning the chunk count.
func (p *Pipeline) processSample(ctx context.Context, s source.Sample) (int, error) {
	info, err := source.ParseInfo(s.InfoJSON)
	if err != nil {
		return 0, err
	}
	info.ID = sampleVideoID(info.ID, s.Key)
	if prev, reused := p.claim(info.ID, s.Key); reused {
		p.logger.Warn("Video id already ingested by another sample, its chunks will be overwritten",
			"video_id", info.ID, "key", s.Key, "previous_key", prev)
	}

	entries, err := caption.ParseVTT(bytes.NewReader(s.VTT))
	if err != nil {
		return 0, fmt.Errorf("captions: %w", err)
	}

	var sample chunker.FrameSampler
	if p.sampler != nil {
		sample = p.sampler(s.VideoPath)
	}
	chunks := p.chunker.ChunkCaptions(entries, sample)
	if len(chunks) == 0 {
		p.logger.Info("Sample produced no chunks", "video_id", info.ID)
		return 0, nil
	}

	lang := DetectLanguage(chunks)
	framed := 0
	for i := range chunks {
		chunks[i].VideoID = info.ID
		chunks[i].Title = info.Title
		chunks[i].SourceRef = info.ID + ".mp4"
		chunks[i].Language = lang
		if chunks[i].Frame != nil {
			framed++
		}
	}

	if err := p.store.InsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("Inserted chunks", "video_id", info.ID, "chunks", len(chunks), "with_frame", framed, "language", lang)

	if p.videosDir != "" {
		// Chunks are already stored; a missing video only disables clipping
		if err := keepVideo(s.VideoPath, p.videosDir, info.ID); err != nil {
			p.logger.Warn("Failed to keep video", "video_id", info.ID, "error", err)
		}
	}
	return len(chunks), nil
}
