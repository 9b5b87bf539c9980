// Package retrieval turns ranked vector-search hits into the merged,
// per-video context blocks handed to the language model.
package retrieval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultGapTolerance is the merge tolerance in seconds used when none is configured.
const DefaultGapTolerance = 120.0

// Hit is a stored chunk's payload returned by similarity search.
type Hit struct {
	VideoID  string
	Title    string
	Start    float64
	End      float64
	Text     string
	FilePath string
	Score    float64
}

// ContextBlock is a run of nearby hits from one video merged into a single span.
type ContextBlock struct {
	VideoID string
	Title   string
	Start   float64
	End     float64
	Text    string
}

// Merge groups hits by video in first-seen order, sorts each group by start
// (stable, so ties keep retrieval order) and folds hits whose start lies
// within gap seconds of the running block's end into that block.
func Merge(hits []Hit, gap float64) []ContextBlock {
	var order []string
	groups := make(map[string][]Hit)
	for _, h := range hits {
		if _, ok := groups[h.VideoID]; !ok {
			order = append(order, h.VideoID)
		}
		groups[h.VideoID] = append(groups[h.VideoID], h)
	}

	blocks := make([]ContextBlock, 0, len(hits))
	for _, videoID := range order {
		group := groups[videoID]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Start < group[j].Start
		})
		blocks = append(blocks, mergeGroup(group, gap)...)
	}

	return blocks
}

// mergeGroup folds a start-sorted, single-video group into blocks.
func mergeGroup(group []Hit, gap float64) []ContextBlock {
	var merged []ContextBlock
	current := blockFrom(group[0])

	for _, h := range group[1:] {
		if h.Start <= current.End+gap {
			current.End = max(current.End, h.End)
			current.Text += " " + h.Text
			continue
		}
		merged = append(merged, current)
		current = blockFrom(h)
	}

	return append(merged, current)
}

func blockFrom(h Hit) ContextBlock {
	return ContextBlock{
		VideoID: h.VideoID,
		Title:   h.Title,
		Start:   h.Start,
		End:     h.End,
		Text:    h.Text,
	}
}

// FormatContext renders blocks one per line as
// "[Video ID: <id> | Title: <title> | <start>s - <end>s]: <text>".
func FormatContext(blocks []ContextBlock) string {
	lines := make([]string, len(blocks))
	for i, b := range blocks {
		lines[i] = fmt.Sprintf("[Video ID: %s | Title: %s | %ss - %ss]: %s",
			b.VideoID, b.Title, formatSeconds(b.Start), formatSeconds(b.End), b.Text)
	}
	return strings.Join(lines, "\n")
}

// formatSeconds prints the shortest decimal form, keeping one fractional
// digit for whole numbers ("30.0", "12.5").
func formatSeconds(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
