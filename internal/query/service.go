// Package query answers questions over the indexed lectures and cuts the
// clip the answer cites.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/bull/video-rag/internal/answer"
	"github.com/bull/video-rag/internal/retrieval"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 15

// DefaultGenerateTimeout bounds one shared retrieval and model call.
const DefaultGenerateTimeout = 2 * time.Minute

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoContext     = errors.New("no indexed lecture content matched the question")
	ErrClip          = errors.New("clip extraction failed")
)

// QueryEmbedder embeds a search question.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, question string) ([]float32, error)
}

// Searcher returns the nearest stored chunks to a vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]retrieval.Hit, error)
}

// Answerer asks the language model.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) (string, error)
}

// Clipper cuts [start, end) seconds of src into dst.
type Clipper interface {
	Cut(ctx context.Context, src, dst string, start, end float64) error
}

// Cache stores raw replies per question. Optional.
type Cache interface {
	Get(ctx context.Context, question string) (string, bool, error)
	Set(ctx context.Context, question, reply string) error
}

// Publisher makes a local clip reachable elsewhere and returns its URI. Optional.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	TopK         int
	GapTolerance float64
	VideosDir    string // Holds <id>/<id>.mp4
	ClipsDir     string

	// GenerateTimeout bounds the retrieval and model call shared by
	// concurrent askers of one question.
	GenerateTimeout time.Duration
}

// Response is the outcome of Ask.
type Response struct {
	Question string
	Reply    string // Raw model reply
	Answer   string // Free-text part of the reply
	Metadata answer.Metadata
	Blocks   []retrieval.ContextBlock // Empty when the reply came from the cache
	ClipPath string
	ClipURI  string // Published location, or ClipPath without a publisher
	Cached   bool
}

// Service wires retrieval, generation and clipping together.
type Service struct {
	embedder  QueryEmbedder
	searcher  Searcher
	answerer  Answerer
	clipper   Clipper
	cache     Cache
	publisher Publisher
	opts      Options
	logger    *slog.Logger

	flight singleflight.Group
}

// NewService creates a Service. cache and publisher may be nil.
// If logger is nil, slog.Default() is used.
func NewService(
	embedder QueryEmbedder,
	searcher Searcher,
	answerer Answerer,
	clipper Clipper,
	cache Cache,
	publisher Publisher,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.GapTolerance < 0 {
		opts.GapTolerance = retrieval.DefaultGapTolerance
	}
	if opts.ClipsDir == "" {
		opts.ClipsDir = os.TempDir()
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder:  embedder,
		searcher:  searcher,
		answerer:  answerer,
		clipper:   clipper,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

// Retrieve embeds question and returns the merged context blocks of its
// limit nearest chunks. A non-positive limit uses the configured top-k.
func (s *Service) Retrieve(ctx context.Context, question string, limit int) ([]retrieval.ContextBlock, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if limit <= 0 {
		limit = s.opts.TopK
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := s.searcher.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	s.logger.Debug("retrieved chunks", "hits", len(hits))

	return retrieval.Merge(hits, s.opts.GapTolerance), nil
}

// Ask answers question from the indexed lectures and cuts the cited clip.
//
// When the reply does not follow the template the returned error wraps an
// *answer.ParseError and the Response still carries the reply. A failed cut
// returns the Response with the answer and an error wrapping ErrClip.
func (s *Service) Ask(ctx context.Context, question string) (*Response, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	// Concurrent askers of the same question share one model call. The shared
	// call outlives any single asker, so one cancellation does not fail the rest.
	ch := s.flight.DoChan(flightKey(question), func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.GenerateTimeout)
		defer cancel()
		return s.generate(shared, question)
	})

	var gen *generated
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		gen = res.Val.(*generated)
	}

	resp := &Response{
		Question: question,
		Reply:    gen.reply,
		Answer:   answer.AnswerText(gen.reply),
		Blocks:   gen.blocks,
		Cached:   gen.cached,
	}

	meta, err := answer.Extract(resp.Reply)
	if err != nil {
		s.logger.Warn("reply did not follow the template", "question", question, "error", err)
		return resp, err
	}
	resp.Metadata = meta

	// Only template-conforming replies are worth serving again
	if !resp.Cached {
		s.store(ctx, question, resp.Reply)
	}

	s.logger.Info("answer cites clip", "video_id", meta.VideoID, "start", meta.Start, "end", meta.End)

	if err := s.clip(ctx, resp); err != nil {
		return resp, err
	}
	return resp, nil
}

type generated struct {
	reply  string
	blocks []retrieval.ContextBlock
	cached bool
}

// generate returns the cached reply or retrieves context and asks the model.
func (s *Service) generate(ctx context.Context, question string) (*generated, error) {
	if reply, ok := s.cached(ctx, question); ok {
		return &generated{reply: reply, cached: true}, nil
	}

	blocks, err := s.Retrieve(ctx, question, s.opts.TopK)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, ErrNoContext
	}

	reply, err := s.answerer.Answer(ctx, question, retrieval.FormatContext(blocks))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &generated{reply: reply, blocks: blocks}, nil
}

func flightKey(question string) string {
	return strings.ToLower(strings.Join(strings.Fields(question), " "))
}

// SourcePath returns where the full video for videoID is expected.
func (s *Service) SourcePath(videoID string) string {
	return filepath.Join(s.opts.VideosDir, videoID, videoID+".mp4")
}

func (s *Service) clip(ctx context.Context, resp *Response) error {
	meta := resp.Metadata
	dst := filepath.Join(s.opts.ClipsDir, uuid.NewString()+".mp4")

	if err := s.clipper.Cut(ctx, s.SourcePath(meta.VideoID), dst, float64(meta.Start), float64(meta.End)); err != nil {
		return fmt.Errorf("%w: %s [%d, %d]: %v", ErrClip, meta.VideoID, meta.Start, meta.End, err)
	}
	resp.ClipPath = dst
	resp.ClipURI = dst

	if s.publisher != nil {
		uri, err := s.publisher.Publish(ctx, dst)
		if err != nil {
			s.logger.Warn("clip publish failed, serving local path", "path", dst, "error", err)
			return nil
		}
		resp.ClipURI = uri
	}
	return nil
}

func (s *Service) cached(ctx context.Context, question string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	reply, ok, err := s.cache.Get(ctx, question)
	if err != nil {
		s.logger.Warn("answer cache lookup failed", "error", err)
		return "", false
	}
	return reply, ok
}

func (s *Service) store(ctx context.Context, question, reply string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, question, reply); err != nil {
		s.logger.Warn("answer cache store failed", "error", err)
	}
}
