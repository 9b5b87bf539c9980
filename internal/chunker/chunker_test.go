package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/video-rag/internal/caption"
)

// recordingSampler returns a fake frame and remembers the requested offsets.
func recordingSampler(calls *[]float64) FrameSampler {
	return func(seconds float64) []byte {
		*calls = append(*calls, seconds)
		return []byte(fmt.Sprintf("frame@%.1f", seconds))
	}
}

func TestChunkCaptions_WindowBoundaries(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 10, Text: "first caption"},
		{Start: 10, End: 20, Text: "second caption"},
		{Start: 20, End: 29, Text: "third caption"},
		{Start: 29, End: 35, Text: "fourth caption"}, // 35 - 0 > 30 closes the first chunk
		{Start: 35, End: 50, Text: "fifth caption"},
	}

	var calls []float64
	chunks := NewChunker(30).ChunkCaptions(entries, recordingSampler(&calls))

	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0.0, chunks[0].Start)
	assert.Equal(t, 29.0, chunks[0].End)
	assert.Equal(t, "first caption second caption third caption", chunks[0].Text)
	assert.Equal(t, []byte("frame@14.5"), chunks[0].Frame)

	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 29.0, chunks[1].Start)
	assert.Equal(t, 50.0, chunks[1].End)
	assert.Equal(t, "fourth caption fifth caption", chunks[1].Text)

	assert.Equal(t, []float64{14.5, 39.5}, calls)
}

// TestChunkCaptions_OriginalStart verifies the boundary is measured from the
// chunk's first caption, not from the previous caption.
func TestChunkCaptions_OriginalStart(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 5, Text: "a1 a2 a3"},
		{Start: 5, End: 10, Text: "b1 b2 b3"},
		{Start: 10, End: 15, Text: "c1 c2 c3"},
		{Start: 15, End: 20, Text: "d1 d2 d3"},
	}

	chunks := NewChunker(12).ChunkCaptions(entries, nil)

	require.Len(t, chunks, 2)
	assert.Equal(t, 0.0, chunks[0].Start)
	assert.Equal(t, 10.0, chunks[0].End)
	assert.Equal(t, 10.0, chunks[1].Start)
	assert.Equal(t, 20.0, chunks[1].End)
}

// TestChunkCaptions_OverrunByBoundaryCaption shows a chunk seeded by the
// caption that closed its predecessor can span more than the window.
func TestChunkCaptions_OverrunByBoundaryCaption(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 2, Text: "short opener"},
		{Start: 2, End: 40, Text: "a very long caption"},
		{Start: 40, End: 41, Text: "tail words"},
	}

	chunks := NewChunker(30).ChunkCaptions(entries, nil)

	require.Len(t, chunks, 3)
	assert.Equal(t, "short opener", chunks[0].Text)
	assert.Equal(t, 2.0, chunks[1].Start)
	assert.Equal(t, 40.0, chunks[1].End)
	assert.Greater(t, chunks[1].End-chunks[1].Start, 30.0)
	assert.Equal(t, "tail words", chunks[2].Text)
}

// TestChunkCaptions_FirstCaptionLongerThanWindow verifies no empty chunk is
// emitted ahead of a caption that alone exceeds the window.
func TestChunkCaptions_FirstCaptionLongerThanWindow(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 45, Text: "one long caption"},
		{Start: 45, End: 50, Text: "next"},
	}

	chunks := NewChunker(30).ChunkCaptions(entries, nil)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
	}
	assert.Equal(t, 0.0, chunks[0].Start)
	assert.Equal(t, "one long caption", chunks[0].Text)
}

func TestChunkCaptions_FailedSamplingKeepsChunk(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 4, Text: "hello there"},
		{Start: 4, End: 8, Text: "general idea"},
	}
	failing := func(float64) []byte { return nil }

	chunks := NewChunker(30).ChunkCaptions(entries, failing)

	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Frame)
	assert.Equal(t, "hello there general idea", chunks[0].Text)
	assert.False(t, chunks[0].Embeddable())
}

func TestChunkCaptions_Empty(t *testing.T) {
	assert.Empty(t, NewChunker(30).ChunkCaptions(nil, nil))
}

func TestChunkCaptions_CleansText(t *testing.T) {
	entries := []caption.Entry{
		{Start: 0, End: 3, Text: "  um so\nthe model  "},
	}

	chunks := NewChunker(30).ChunkCaptions(entries, nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, "so the model", chunks[0].Text)
}

// TestChunkCaptions_CoversEveryCaption checks ordering and coverage over a
// long synthetic track.
func TestChunkCaptions_CoversEveryCaption(t *testing.T) {
	var entries []caption.Entry
	for i := 0; i < 200; i++ {
		start := float64(i) * 3.7
		entries = append(entries, caption.Entry{
			Start: start,
			End:   start + 3.7,
			Text:  fmt.Sprintf("word%d", i),
		})
	}

	chunks := NewChunker(30).ChunkCaptions(entries, nil)
	require.NotEmpty(t, chunks)

	seen := make(map[string]int)
	for i, c := range chunks {
		assert.LessOrEqual(t, c.Start, c.End)
		if i > 0 {
			assert.Greater(t, c.Start, chunks[i-1].Start, "chunk starts must increase")
			assert.LessOrEqual(t, chunks[i-1].End, c.End)
		}
		for _, w := range strings.Fields(c.Text) {
			seen[w]++
		}
	}

	for _, e := range entries {
		assert.Equal(t, 1, seen[e.Text], "caption %q should appear in exactly one chunk", e.Text)
	}
}

func TestNewChunker_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewChunker(0).Window())
	assert.Equal(t, 12.0, NewChunker(12).Window())
}
