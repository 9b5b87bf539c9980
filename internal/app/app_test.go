package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/video-rag/internal/config"
	"github.com/bull/video-rag/internal/embedding"
	"github.com/bull/video-rag/internal/source"
)

func TestNewSource(t *testing.T) {
	cfg := config.Default()

	src, err := NewSource(cfg, SourceTar, nil)
	require.NoError(t, err)
	assert.IsType(t, &source.TarSource{}, src)

	_, err = NewSource(cfg, SourceGitHub, nil)
	assert.Error(t, err, "github source needs a repository")

	_, err = NewSource(cfg, "s3", nil)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = "word2vec"

	_, err := NewEmbedder(cfg, nil)
	assert.ErrorIs(t, err, embedding.ErrUnknownProvider)
}

type ensureRecorder struct {
	dims []int
	err  error
}

func (e *ensureRecorder) EnsureCollection(ctx context.Context, dim int) error {
	e.dims = append(e.dims, dim)
	return e.err
}

type dimEmbedder struct {
	embedding.Embedder
	dim int
}

func (d dimEmbedder) Dimension() int { return d.dim }

func TestPrepareIndex(t *testing.T) {
	index := &ensureRecorder{}
	require.NoError(t, prepareIndex(context.Background(), index, dimEmbedder{dim: 1024}))
	assert.Equal(t, []int{1024}, index.dims)

	index.err = errors.New("unavailable")
	assert.ErrorContains(t, prepareIndex(context.Background(), index, dimEmbedder{dim: 1024}), "ensure collection")
}
