package source

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfo(t *testing.T) {
	info, err := ParseInfo([]byte(`{"id":"abc123","title":"Optimization Basics","duration":612}`))
	require.NoError(t, err)
	assert.Equal(t, Info{ID: "abc123", Title: "Optimization Basics"}, info)
}

func TestParseInfo_Defaults(t *testing.T) {
	info, err := ParseInfo([]byte(`{"uploader":"someone"}`))
	require.NoError(t, err)
	assert.Equal(t, UnknownID, info.ID)
	assert.Equal(t, UnknownTitle, info.Title)
}

func TestParseInfo_Invalid(t *testing.T) {
	_, err := ParseInfo([]byte(`{not json`))
	assert.Error(t, err)
}

func TestSplitMember(t *testing.T) {
	tests := []struct {
		name, key, suffix string
	}{
		{"abc123.en.vtt", "abc123", "en.vtt"},
		{"lectures/abc123.info.json", "lectures/abc123", "info.json"},
		{"v1.0/abc123.mp4", "v1.0/abc123", "mp4"},
		{"README", "README", ""},
	}
	for _, tt := range tests {
		key, suffix := splitMember(tt.name)
		assert.Equal(t, tt.key, key, tt.name)
		assert.Equal(t, tt.suffix, suffix, tt.name)
	}
}

type member struct {
	name string
	body string
}

func buildTar(t *testing.T, members ...member) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	tw := tar.NewWriter(buf)
	for _, m := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(len(m.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(m.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf
}

func TestTarSource_GroupsByKey(t *testing.T) {
	archive := buildTar(t,
		member{"abc123.en.vtt", "WEBVTT\n"},
		member{"abc123.info.json", `{"id":"abc123"}`},
		member{"abc123.mp4", "fake video"},
		member{"def456.en.vtt", "WEBVTT\n"},
		member{"def456.info.json", `{"id":"def456"}`},
	)

	src := NewTarSource("memory", t.TempDir(), nil)
	var samples []Sample
	err := src.read(context.Background(), archive, func(s Sample) error {
		samples = append(samples, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, samples, 2)

	first := samples[0]
	assert.Equal(t, "abc123", first.Key)
	assert.True(t, first.Complete())
	video, err := os.ReadFile(first.VideoPath)
	require.NoError(t, err)
	assert.Equal(t, "fake video", string(video))

	require.NoError(t, first.Close())
	_, err = os.Stat(first.VideoPath)
	assert.True(t, os.IsNotExist(err), "Close should remove the spooled video")

	second := samples[1]
	assert.Equal(t, "def456", second.Key)
	assert.False(t, second.Complete())
	assert.Equal(t, []string{VideoSuffix}, second.Missing())
}

func TestTarSource_CallbackErrorStops(t *testing.T) {
	archive := buildTar(t,
		member{"a.en.vtt", "WEBVTT\n"},
		member{"b.en.vtt", "WEBVTT\n"},
	)
	stop := errors.New("stop")

	calls := 0
	err := NewTarSource("memory", t.TempDir(), nil).read(context.Background(), archive, func(Sample) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestTarSource_Cancelled(t *testing.T) {
	archive := buildTar(t, member{"a.en.vtt", "WEBVTT\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTarSource("memory", t.TempDir(), nil).read(ctx, archive, func(Sample) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTarSource_MissingArchive(t *testing.T) {
	err := NewTarSource("/nonexistent/dataset.tar", "", nil).Samples(context.Background(), func(Sample) error { return nil })
	assert.Error(t, err)
}
