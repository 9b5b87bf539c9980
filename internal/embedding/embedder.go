// Package embedding maps caption text and video frames into a shared vector
// space and fuses the two into one chunk embedding.
package embedding

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrUnknownProvider   = errors.New("unknown embedding provider")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrCountMismatch     = errors.New("embedding count mismatch")
)

// Embedder produces vectors for caption text, frames and search questions.
// Text and image vectors of one Embedder share a dimension so they can be fused.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error)
	EmbedQuery(ctx context.Context, question string) ([]float32, error)
	Dimension() int
}

// Fuse combines a text and an image embedding by element-wise mean.
func Fuse(text, image []float32) ([]float32, error) {
	if len(text) != len(image) {
		return nil, fmt.Errorf("%w: text has %d dimensions, image has %d",
			ErrDimensionMismatch, len(text), len(image))
	}

	fused := make([]float32, len(text))
	for i := range text {
		fused[i] = (text[i] + image[i]) / 2
	}
	return fused, nil
}

// jpegDataURI encodes a JPEG frame the way both providers accept images inline.
func jpegDataURI(frame []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)
}

// newBackoff returns the retry policy shared by every provider call.
func newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// toFloat32 converts []float64 to []float32.
// Both APIs return float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

// batches splits n items into [start, end) ranges of at most size.
func batches(n, size int) [][2]int {
	var out [][2]int
	for i := 0; i < n; i += size {
		out = append(out, [2]int{i, min(i+size, n)})
	}
	return out
}
