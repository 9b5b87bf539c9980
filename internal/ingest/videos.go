package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// VideoPath returns where a kept video for videoID lives under dir.
func VideoPath(dir, videoID string) string {
	return filepath.Join(dir, videoID, videoID+".mp4")
}

// keepVideo moves the spooled video into place, copying when a rename
// crosses filesystems. An existing file is replaced.
func keepVideo(src, dir, videoID string) error {
	dst := VideoPath(dir, videoID)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".video-*")
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy video: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("copy video: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}
