package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestPointID_Stable(t *testing.T) {
	a := PointID("abc123", 4)
	b := PointID("abc123", 4)
	if a != b {
		t.Fatalf("PointID not stable: %s != %s", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("PointID %q is not a UUID: %v", a, err)
	}
}

func TestPointID_Distinct(t *testing.T) {
	ids := map[string]bool{
		PointID("abc123", 0): true,
		PointID("abc123", 1): true,
		PointID("abc12", 31): true,
		PointID("xyz", 0):    true,
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct ids, got %d", len(ids))
	}
}

func TestHitFromPayload(t *testing.T) {
	p := ChunkPoint{
		VideoID:    "abc123",
		ChunkIndex: 2,
		Title:      "Optimization Basics",
		Start:      60,
		End:        89.5,
		Text:       "gradient descent",
		FilePath:   "abc123.mp4",
	}

	hit := hitFromPayload(qdrant.NewValueMap(payloadOf(p)))

	if hit.VideoID != p.VideoID || hit.Title != p.Title || hit.Text != p.Text || hit.FilePath != p.FilePath {
		t.Errorf("unexpected hit %+v", hit)
	}
	if hit.Start != 60 || hit.End != 89.5 {
		t.Errorf("expected [60, 89.5], got [%v, %v]", hit.Start, hit.End)
	}
}

func TestHitFromPayload_Missing(t *testing.T) {
	hit := hitFromPayload(map[string]*qdrant.Value{})

	if hit.VideoID != "" || hit.Start != 0 || hit.End != 0 {
		t.Errorf("expected zero hit, got %+v", hit)
	}
}

func TestNumberValue_Integer(t *testing.T) {
	if got := numberValue(qdrant.NewValueInt(42)); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}
