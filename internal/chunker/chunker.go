// Package chunker groups timed captions into fixed-window chunks, each
// illustrated by one frame sampled at the chunk's temporal midpoint.
package chunker

import (
	"strings"

	"github.com/bull/video-rag/internal/caption"
)

// DefaultWindow is the chunk span in seconds used when none is configured.
const DefaultWindow = 30.0

// FrameSampler returns an encoded still image of the video at the given
// offset in seconds, or nil when no frame could be produced.
type FrameSampler func(seconds float64) []byte

// Chunk is a time-bounded unit of caption text with its illustrating frame.
type Chunk struct {
	Index     int     // Position within the video (0, 1, 2...)
	Start     float64 // Seconds
	End       float64 // Seconds
	Text      string  // Cleaned caption text in temporal order
	Frame     []byte  // JPEG sampled at the midpoint, nil if sampling failed
	VideoID   string
	Title     string
	SourceRef string // Video file the chunk was cut from: "<video_id>.mp4"
	Language  string // ISO 639-1 code of the caption text, empty if unknown
}

// Midpoint is the offset at which the chunk's frame is sampled.
func (c Chunk) Midpoint() float64 {
	return (c.Start + c.End) / 2
}

// Embeddable reports whether the chunk has both text and a frame.
func (c Chunk) Embeddable() bool {
	return c.Text != "" && len(c.Frame) > 0
}

// Chunker splits a caption track into windows of at most window seconds
// measured from each chunk's first caption.
type Chunker struct {
	window float64
}

// NewChunker creates a chunker. A non-positive window falls back to DefaultWindow.
func NewChunker(window float64) *Chunker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Chunker{window: window}
}

// Window returns the configured window in seconds.
func (c *Chunker) Window() float64 {
	return c.window
}

// openChunk accumulates captions until the window closes.
type openChunk struct {
	start, end float64
	parts      []string
	captions   int
}

func (o *openChunk) add(e caption.Entry) {
	o.parts = append(o.parts, caption.Normalize(strings.TrimSpace(e.Text)))
	o.end = e.End
	o.captions++
}

func (o *openChunk) text() string {
	return strings.TrimSpace(strings.Join(o.parts, " "))
}

// close turns the accumulated captions into a chunk, sampling its frame.
func (o *openChunk) close(index int, sample FrameSampler) Chunk {
	chunk := Chunk{
		Index: index,
		Start: o.start,
		End:   o.end,
		Text:  o.text(),
	}
	if sample != nil {
		chunk.Frame = sample(chunk.Midpoint())
	}
	return chunk
}

// ChunkCaptions folds entries, in order, into fixed-window chunks.
//
// A caption whose end lies more than the window past the open chunk's start
// closes that chunk and seeds the next one, so a chunk may overrun the window
// by the boundary caption's length. Frame sampling failures leave Frame nil;
// the chunk is still emitted. sample may be nil.
func (c *Chunker) ChunkCaptions(entries []caption.Entry, sample FrameSampler) []Chunk {
	if len(entries) == 0 {
		return nil
	}

	var chunks []Chunk
	cur := &openChunk{start: entries[0].Start, end: entries[0].End}

	for _, e := range entries {
		if e.End-cur.start > c.window {
			if cur.captions > 0 {
				chunks = append(chunks, cur.close(len(chunks), sample))
			}
			cur = &openChunk{start: e.Start, end: e.End}
		}
		cur.add(e)
	}

	if cur.text() != "" {
		chunks = append(chunks, cur.close(len(chunks), sample))
	}

	return chunks
}
