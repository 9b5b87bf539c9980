package storage

import (
	"fmt"

	"github.com/google/uuid"
)

// ChunkPoint is a fused chunk embedding together with the payload needed to
// cite it: the caption text, its video and its time range.
type ChunkPoint struct {
	VideoID    string
	ChunkIndex int
	Title      string
	Start      float64   // Seconds
	End        float64   // Seconds
	Text       string    // Cleaned caption text
	FilePath   string    // "<video_id>.mp4"
	Language   string    // ISO 639-1, may be empty
	Vector     []float32 // Mean of text and frame embeddings
}

// CollectionName is the Qdrant collection holding every chunk point.
const CollectionName = "video_chunks_multimodal"

// pointNamespace scopes the name-based point ids of this index.
var pointNamespace = uuid.MustParse("6f1c2a8e-3d4b-5e6f-9a0b-1c2d3e4f5a6b")

// PointID derives a stable point id from a chunk's identity, so embedding the
// same chunk twice overwrites instead of duplicating it.
func PointID(videoID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%d", videoID, chunkIndex))).String()
}
