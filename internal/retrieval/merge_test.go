package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(video string, start, end float64, text string) Hit {
	return Hit{VideoID: video, Title: "title-" + video, Start: start, End: end, Text: text}
}

// TestMerge_ToleranceArithmetic: 15 <= 10+120 merges; 200 <= 25+120 is false,
// so [200,210] stays separate.
func TestMerge_ToleranceArithmetic(t *testing.T) {
	hits := []Hit{
		hit("v1", 0, 10, "a"),
		hit("v1", 15, 25, "b"),
		hit("v1", 200, 210, "c"),
	}

	blocks := Merge(hits, DefaultGapTolerance)

	require.Len(t, blocks, 2)
	assert.Equal(t, ContextBlock{VideoID: "v1", Title: "title-v1", Start: 0, End: 25, Text: "a b"}, blocks[0])
	assert.Equal(t, ContextBlock{VideoID: "v1", Title: "title-v1", Start: 200, End: 210, Text: "c"}, blocks[1])
}

func TestMerge_InclusiveBoundary(t *testing.T) {
	hits := []Hit{
		hit("v1", 0, 10, "a"),
		hit("v1", 130, 140, "b"), // exactly end + gap
	}

	blocks := Merge(hits, 120)

	require.Len(t, blocks, 1)
	assert.Equal(t, 140.0, blocks[0].End)
}

func TestMerge_ZeroTolerance(t *testing.T) {
	hits := []Hit{
		hit("v1", 0, 10, "a"),
		hit("v1", 10, 20, "b"),
		hit("v1", 21, 30, "c"),
	}

	blocks := Merge(hits, 0)

	require.Len(t, blocks, 2)
	assert.Equal(t, "a b", blocks[0].Text)
	assert.Equal(t, "c", blocks[1].Text)
}

// TestMerge_GroupOrder verifies groups follow first-seen video order and
// blocks inside a group are sorted by start.
func TestMerge_GroupOrder(t *testing.T) {
	hits := []Hit{
		hit("v2", 500, 530, "v2-late"),
		hit("v1", 300, 330, "v1-late"),
		hit("v2", 0, 30, "v2-early"),
		hit("v1", 0, 30, "v1-early"),
	}

	blocks := Merge(hits, 120)

	require.Len(t, blocks, 4)
	assert.Equal(t, []string{"v2-early", "v2-late", "v1-early", "v1-late"},
		[]string{blocks[0].Text, blocks[1].Text, blocks[2].Text, blocks[3].Text})
}

func TestMerge_ContainedHitKeepsEnd(t *testing.T) {
	hits := []Hit{
		hit("v1", 0, 100, "outer"),
		hit("v1", 20, 30, "inner"),
	}

	blocks := Merge(hits, 0)

	require.Len(t, blocks, 1)
	assert.Equal(t, 100.0, blocks[0].End)
	assert.Equal(t, "outer inner", blocks[0].Text)
}

func TestMerge_StableTies(t *testing.T) {
	hits := []Hit{
		hit("v1", 10, 20, "first"),
		hit("v1", 10, 20, "second"),
	}

	blocks := Merge(hits, 0)

	require.Len(t, blocks, 1)
	assert.Equal(t, "first second", blocks[0].Text)
}

func TestMerge_KeepsFirstTitle(t *testing.T) {
	hits := []Hit{
		{VideoID: "v1", Title: "Lecture 1", Start: 0, End: 10, Text: "a"},
		{VideoID: "v1", Title: "Lecture 1 (re-upload)", Start: 5, End: 15, Text: "b"},
	}

	blocks := Merge(hits, 120)

	require.Len(t, blocks, 1)
	assert.Equal(t, "Lecture 1", blocks[0].Title)
}

// TestMerge_NoOverlapWithinVideo checks the output invariant on a larger set.
func TestMerge_NoOverlapWithinVideo(t *testing.T) {
	var hits []Hit
	for i := 0; i < 40; i++ {
		video := []string{"a", "b", "c"}[i%3]
		start := float64((i * 97) % 2000)
		hits = append(hits, hit(video, start, start+30, "t"))
	}
	const gap = 60.0

	blocks := Merge(hits, gap)

	last := make(map[string]ContextBlock)
	for _, b := range blocks {
		if prev, ok := last[b.VideoID]; ok {
			assert.Greater(t, b.Start, prev.End+gap, "blocks for %s overlap or are within tolerance", b.VideoID)
		}
		last[b.VideoID] = b
	}
}

func TestMerge_Empty(t *testing.T) {
	assert.Empty(t, Merge(nil, 120))
}

func TestFormatContext(t *testing.T) {
	blocks := []ContextBlock{
		{VideoID: "abc123", Title: "Backprop", Start: 30, End: 92.5, Text: "chain rule"},
		{VideoID: "xyz", Title: "Intro", Start: 0, End: 29.04, Text: "welcome"},
	}

	want := "[Video ID: abc123 | Title: Backprop | 30.0s - 92.5s]: chain rule\n" +
		"[Video ID: xyz | Title: Intro | 0.0s - 29.04s]: welcome"
	assert.Equal(t, want, FormatContext(blocks))
	assert.Equal(t, "", FormatContext(nil))
}
