// Package docstore persists caption chunks and their frames in Cassandra
// between the ingest and embed stages.
package docstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocql/gocql"

	"github.com/bull/video-rag/internal/chunker"
)

var (
	ErrInvalidIdentifier = errors.New("invalid cassandra identifier")
	ErrCassandraDown     = errors.New("cassandra unreachable")
)

// scanPageSize keeps pages small; every row carries a base64 frame.
const scanPageSize = 200

var identifierRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// Options configures Connect.
type Options struct {
	Hosts       []string
	Keyspace    string
	Table       string
	Consistency string // "one", "quorum", "all"...; defaults to quorum
	Timeout     time.Duration
}

// Store reads and writes chunk rows.
type Store struct {
	session  *gocql.Session
	keyspace string
	table    string
	logger   *slog.Logger
}

// Connect opens a session to the cluster. The keyspace is not bound to the
// session so EnsureSchema can create it.
func Connect(opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !identifierRe.MatchString(opts.Keyspace) {
		return nil, fmt.Errorf("%w: keyspace %q", ErrInvalidIdentifier, opts.Keyspace)
	}
	if !identifierRe.MatchString(opts.Table) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, opts.Table)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Consistency = parseConsistency(opts.Consistency)
	cluster.Timeout = opts.Timeout
	cluster.ConnectTimeout = opts.Timeout

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCassandraDown, err)
	}

	return &Store{
		session:  session,
		keyspace: opts.Keyspace,
		table:    opts.Table,
		logger:   logger,
	}, nil
}

func parseConsistency(s string) gocql.Consistency {
	if s == "" {
		return gocql.Quorum
	}
	c, err := gocql.ParseConsistencyWrapper(strings.ToUpper(s))
	if err != nil {
		return gocql.Quorum
	}
	return c
}

// Close closes the session.
func (s *Store) Close() {
	if s.session != nil {
		s.session.Close()
	}
}

// Health runs a trivial query against the cluster.
func (s *Store) Health(ctx context.Context) error {
	var version string
	if err := s.session.Query(`SELECT release_version FROM system.local`).WithContext(ctx).Scan(&version); err != nil {
		return fmt.Errorf("cassandra health check failed: %w", err)
	}
	return nil
}

func (s *Store) qualified() string {
	return s.keyspace + "." + s.table
}

// EnsureSchema creates the keyspace and chunk table if missing. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
			WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, s.keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			video_id text,
			chunk_index int,
			title text,
			start_time double,
			end_time double,
			text text,
			image text,
			filepath text,
			language text,
			created_at timestamp,
			PRIMARY KEY ((video_id), chunk_index)
		)`, s.qualified()),
	}

	for _, stmt := range stmts {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Clear removes every stored chunk.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.session.Query("TRUNCATE " + s.qualified()).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("truncate %s: %w", s.qualified(), err)
	}
	return nil
}

// InsertChunks writes chunks one row at a time. Rows are not batched because
// each carries an encoded frame that would exceed batch size limits.
func (s *Store) InsertChunks(ctx context.Context, chunks []chunker.Chunk) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (
		video_id, chunk_index, title, start_time, end_time, text, image, filepath, language, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.qualified())

	now := time.Now()
	for _, c := range chunks {
		r := rowFromChunk(c)
		operation := func() error {
			return s.session.Query(stmt,
				r.VideoID, r.ChunkIndex, r.Title, r.Start, r.End, r.Text, r.Image, r.FilePath, r.Language, now,
			).WithContext(ctx).Exec()
		}

		if err := backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx)); err != nil {
			return fmt.Errorf("insert chunk %s/%d: %w", c.VideoID, c.Index, err)
		}
	}

	return nil
}

// ScanAll calls fn for every stored chunk, paging through the table. Rows come
// back in token order, not insertion order. A row whose frame cannot be
// decoded is passed on with a nil frame. An error from fn stops the scan.
func (s *Store) ScanAll(ctx context.Context, fn func(chunker.Chunk) error) error {
	stmt := fmt.Sprintf(`SELECT video_id, chunk_index, title, start_time, end_time, text, image, filepath, language
		FROM %s`, s.qualified())

	iter := s.session.Query(stmt).WithContext(ctx).PageSize(scanPageSize).Iter()

	var r row
	for iter.Scan(&r.VideoID, &r.ChunkIndex, &r.Title, &r.Start, &r.End, &r.Text, &r.Image, &r.FilePath, &r.Language) {
		c, err := r.chunk()
		if err != nil {
			s.logger.Warn("undecodable frame", "video_id", r.VideoID, "chunk_index", r.ChunkIndex, "error", err)
		}
		if err := fn(c); err != nil {
			iter.Close()
			return err
		}
		r = row{}
	}

	if err := iter.Close(); err != nil {
		return fmt.Errorf("scan %s: %w", s.qualified(), err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.session.Query("SELECT COUNT(*) FROM " + s.qualified()).WithContext(ctx).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.qualified(), err)
	}
	return n, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// row is the stored form of a chunk. The frame is kept as base64 text.
type row struct {
	VideoID    string
	ChunkIndex int
	Title      string
	Start      float64
	End        float64
	Text       string
	Image      string
	FilePath   string
	Language   string
}

func rowFromChunk(c chunker.Chunk) row {
	return row{
		VideoID:    c.VideoID,
		ChunkIndex: c.Index,
		Title:      c.Title,
		Start:      c.Start,
		End:        c.End,
		Text:       c.Text,
		Image:      encodeFrame(c.Frame),
		FilePath:   c.SourceRef,
		Language:   c.Language,
	}
}

func (r row) chunk() (chunker.Chunk, error) {
	frame, err := decodeFrame(r.Image)
	return chunker.Chunk{
		Index:     r.ChunkIndex,
		Start:     r.Start,
		End:       r.End,
		Text:      r.Text,
		Frame:     frame,
		VideoID:   r.VideoID,
		Title:     r.Title,
		SourceRef: r.FilePath,
		Language:  r.Language,
	}, err
}

func encodeFrame(frame []byte) string {
	if len(frame) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(frame)
}

func decodeFrame(image string) ([]byte, error) {
	if image == "" {
		return nil, nil
	}
	frame, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}
