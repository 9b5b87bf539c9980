package embedding

import (
	"errors"
	"strings"
	"testing"
)

func TestFuse(t *testing.T) {
	fused, err := Fuse([]float32{1, 2, 3}, []float32{3, 2, -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float32{2, 2, 0}
	for i := range want {
		if fused[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], fused[i])
		}
	}
}

func TestFuse_DimensionMismatch(t *testing.T) {
	_, err := Fuse([]float32{1, 2}, []float32{1})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBatches(t *testing.T) {
	got := batches(5, 2)
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}

	if len(got) != len(want) {
		t.Fatalf("expected %d batches, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("batch %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if len(batches(0, 10)) != 0 {
		t.Error("expected no batches for empty input")
	}
}

func TestJPEGDataURI(t *testing.T) {
	uri := jpegDataURI([]byte{0xff, 0xd8, 0xff})
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Errorf("unexpected prefix: %s", uri)
	}
	if !strings.HasSuffix(uri, "/9j/") {
		t.Errorf("unexpected payload: %s", uri)
	}
}

func TestToFloat32(t *testing.T) {
	got := toFloat32([]float64{0.5, -1})
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Errorf("unexpected conversion: %v", got)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Options{Provider: "sentencepiece"}, nil)
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestNewCohereEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewCohereEmbedder("", "", 0); err == nil {
		t.Error("expected error without API key")
	}
}
