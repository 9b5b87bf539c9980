package source

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// TarSource reads a webdataset tar archive, where the members of one sample
// are stored next to each other and share a key.
type TarSource struct {
	path    string
	tempDir string
	logger  *slog.Logger
}

// NewTarSource creates a TarSource for the archive at path. Videos are
// spooled into tempDir (os.TempDir() when empty).
func NewTarSource(path, tempDir string, logger *slog.Logger) *TarSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &TarSource{path: path, tempDir: tempDir, logger: logger}
}

// Samples streams every sample in the archive.
func (t *TarSource) Samples(ctx context.Context, fn func(Sample) error) error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return t.read(ctx, f, fn)
}

func (t *TarSource) read(ctx context.Context, r io.Reader, fn func(Sample) error) error {
	tr := tar.NewReader(r)
	var cur *Sample

	flush := func() error {
		if cur == nil {
			return nil
		}
		s := *cur
		cur = nil
		return fn(s)
	}

	for {
		if err := ctx.Err(); err != nil {
			if cur != nil {
				cur.Close()
			}
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if cur != nil {
				cur.Close()
			}
			return fmt.Errorf("read dataset: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		key, suffix := splitMember(hdr.Name)
		if cur == nil || cur.Key != key {
			if err := flush(); err != nil {
				return err
			}
			cur = &Sample{Key: key, Origin: t.path}
		}

		switch suffix {
		case VTTSuffix:
			cur.VTT, err = io.ReadAll(tr)
		case InfoSuffix:
			cur.InfoJSON, err = io.ReadAll(tr)
		case VideoSuffix:
			cur.VideoPath, err = spool(tr, t.tempDir)
		default:
			t.logger.Debug("ignoring dataset member", "name", hdr.Name)
		}
		if err != nil {
			cur.Close()
			return fmt.Errorf("read member %s: %w", hdr.Name, err)
		}
	}

	return flush()
}
