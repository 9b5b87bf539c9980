// Package video samples still frames from lecture recordings and cuts the
// clips cited by answers, shelling out to ffmpeg through ffmpeg-go.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/bull/video-rag/internal/chunker"
)

var (
	ErrEmptyRange = errors.New("clip range is empty")
	ErrNoFrame    = errors.New("ffmpeg produced no frame")
	ErrNoDuration = errors.New("ffmpeg reported no duration")
)

const (
	VideoCodec = "libx264"
	AudioCodec = "aac"
)

// Sampler extracts JPEG frames from one video file.
type Sampler struct {
	path   string
	logger *slog.Logger
}

// NewSampler creates a Sampler for the video at path.
// If logger is nil, slog.Default() is used.
func NewSampler(path string, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{path: path, logger: logger}
}

// Frame returns the JPEG-encoded frame at the given offset in seconds.
func (s *Sampler) Frame(seconds float64) ([]byte, error) {
	buf := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := ffmpeg.Input(s.path, ffmpeg.KwArgs{"ss": formatSeconds(seconds)}).
		Output("pipe:", ffmpeg.KwArgs{"vframes": 1, "format": "image2", "vcodec": "mjpeg"}).
		WithOutput(buf, stderr).
		Run()
	if err != nil {
		return nil, fmt.Errorf("extract frame at %ss from %s: %w: %s",
			formatSeconds(seconds), s.path, err, lastLine(stderr.String()))
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w at %ss in %s", ErrNoFrame, formatSeconds(seconds), s.path)
	}

	return buf.Bytes(), nil
}

// Func adapts the sampler to chunker.FrameSampler. Failures are logged and
// yield a nil frame so the chunk is still emitted.
func (s *Sampler) Func() chunker.FrameSampler {
	return func(seconds float64) []byte {
		frame, err := s.Frame(seconds)
		if err != nil {
			s.logger.Debug("frame sampling failed", "path", s.path, "seconds", seconds, "error", err)
			return nil
		}
		return frame
	}
}

// Duration returns the container duration of the video at path in seconds.
func Duration(path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("read duration of %s: %w", path, err)
	}
	return parseDuration(out)
}

// parseDuration reads format.duration from the ffmpeg metadata JSON.
func parseDuration(metadata string) (float64, error) {
	d := gjson.Get(metadata, "format.duration")
	if !d.Exists() {
		return 0, ErrNoDuration
	}
	// ffmpeg prints the duration as a quoted decimal string
	duration := d.Float()
	if duration <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, d.String())
	}
	return duration, nil
}

// ClampRange limits end to the video duration and rejects ranges that are
// empty afterwards. A non-positive duration means unknown and leaves end as is.
func ClampRange(start, end, duration float64) (float64, float64, error) {
	if start < 0 {
		start = 0
	}
	if duration > 0 {
		end = math.Min(end, duration)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("%w: [%s, %s]", ErrEmptyRange, formatSeconds(start), formatSeconds(end))
	}
	return start, end, nil
}

// Clipper cuts sub-ranges out of source videos.
type Clipper struct {
	logger *slog.Logger
}

// NewClipper creates a Clipper. If logger is nil, slog.Default() is used.
func NewClipper(logger *slog.Logger) *Clipper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Clipper{logger: logger}
}

// Cut writes [start, end) of src to dst, re-encoding with libx264/aac. The end
// is clamped to the container duration of src.
func (c *Clipper) Cut(ctx context.Context, src, dst string, start, end float64) error {
	duration, err := Duration(src)
	if err != nil {
		c.logger.Warn("duration unknown, cutting without clamping", "path", src, "error", err)
		duration = 0
	}

	start, end, err = ClampRange(start, end, duration)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}

	stderr := &bytes.Buffer{}
	cmd := ffmpeg.Input(src, ffmpeg.KwArgs{"ss": formatSeconds(start)}).
		Output(dst, ffmpeg.KwArgs{
			"t":   formatSeconds(end - start),
			"c:v": VideoCodec,
			"c:a": AudioCodec,
		}).
		OverWriteOutput().
		WithOutput(nil, stderr).
		Compile()

	if err := runContext(ctx, cmd); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	c.logger.Info("clip written", "src", src, "dst", dst, "start", start, "end", end)
	return nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which holds the error.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
