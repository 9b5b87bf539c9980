// Package source yields lecture samples (caption track, video metadata and
// the video file) from a webdataset tar archive or a GitHub repository.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Member suffixes of one sample.
const (
	VTTSuffix   = "en.vtt"
	InfoSuffix  = "info.json"
	VideoSuffix = "mp4"
)

// Defaults applied when the info JSON lacks a field.
const (
	UnknownID    = "unknown_id"
	UnknownTitle = "unknown_title"
)

// Info is the subset of the downloader's info JSON the pipeline uses.
type Info struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ParseInfo decodes an info JSON document, filling missing or empty fields
// with UnknownID and UnknownTitle.
func ParseInfo(raw []byte) (Info, error) {
	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, fmt.Errorf("parse info json: %w", err)
	}
	if info.ID == "" {
		info.ID = UnknownID
	}
	if info.Title == "" {
		info.Title = UnknownTitle
	}
	return info, nil
}

// Sample is one lecture: its captions, its info document and a local copy of
// its video. Close removes the local copy.
type Sample struct {
	Key       string
	VTT       []byte
	InfoJSON  []byte
	VideoPath string
	Origin    string // Where the sample came from, for logs
}

// Missing lists the members the sample lacks.
func (s Sample) Missing() []string {
	var missing []string
	if s.VTT == nil {
		missing = append(missing, VTTSuffix)
	}
	if s.InfoJSON == nil {
		missing = append(missing, InfoSuffix)
	}
	if s.VideoPath == "" {
		missing = append(missing, VideoSuffix)
	}
	return missing
}

// Complete reports whether the sample has captions, info and video.
func (s Sample) Complete() bool {
	return len(s.Missing()) == 0
}

// Close removes the local video copy.
func (s Sample) Close() error {
	if s.VideoPath == "" {
		return nil
	}
	if err := os.Remove(s.VideoPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Source streams samples to fn in source order. The callee owns each sample
// and must Close it. An error from fn stops the stream and is returned.
type Source interface {
	Samples(ctx context.Context, fn func(Sample) error) error
}

// splitMember splits a webdataset member name into its sample key and
// suffix: "lectures/abc123.en.vtt" -> ("lectures/abc123", "en.vtt").
func splitMember(name string) (key, suffix string) {
	dir, base := "", name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		dir, base = name[:i+1], name[i+1:]
	}
	dot := strings.Index(base, ".")
	if dot < 0 {
		return name, ""
	}
	return dir + base[:dot], base[dot+1:]
}

// spool copies a video member to a temp file ffmpeg can seek in.
func spool(r io.Reader, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "sample-*.mp4")
	if err != nil {
		return "", fmt.Errorf("create temp video: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp video: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp video: %w", err)
	}
	return f.Name(), nil
}
