// Package caption parses WebVTT subtitle tracks into timed caption entries
// and normalizes the noisy text typical of auto-generated lecture captions.
package caption

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Entry is a single caption cue with its span in seconds.
type Entry struct {
	Start float64
	End   float64
	Text  string
}

// timingLineRe matches "00:00:01.234 --> 00:00:03.456" with optional cue
// settings after the end timestamp.
var timingLineRe = regexp.MustCompile(`^(\S+)\s+-->\s+(\S+)`)

// inlineTagRe matches inline markup such as <c>, </c>, <i> and karaoke
// timestamps like <00:00:01.500>.
var inlineTagRe = regexp.MustCompile(`<[^>]*>`)

// ParseVTT reads a WebVTT track and returns its cues in file order.
// Header, NOTE, STYLE and REGION blocks and cue identifiers are skipped.
// A malformed timing line fails the whole track with a *FormatError.
func ParseVTT(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries []Entry
		block   []string
		lineNo  int
		startAt int
	)

	flush := func() error {
		defer func() { block = block[:0] }()
		entry, ok, err := parseBlock(block, startAt)
		if err != nil {
			return err
		}
		if ok {
			entries = append(entries, entry)
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			if len(block) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			continue
		}
		if len(block) == 0 {
			startAt = lineNo
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	if len(block) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	return entries, nil
}

// parseBlock turns one blank-line separated block into a cue. ok is false
// for blocks that carry no cue.
func parseBlock(lines []string, firstLine int) (Entry, bool, error) {
	head := lines[0]
	for _, prefix := range []string{"WEBVTT", "NOTE", "STYLE", "REGION"} {
		if strings.HasPrefix(head, prefix) {
			return Entry{}, false, nil
		}
	}

	timing := -1
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			timing = i
			break
		}
	}
	if timing < 0 {
		return Entry{}, false, nil
	}

	lineNo := firstLine + timing
	m := timingLineRe.FindStringSubmatch(strings.TrimSpace(lines[timing]))
	if m == nil {
		return Entry{}, false, &FormatError{Value: lines[timing], Line: lineNo, Reason: "invalid cue timing line"}
	}

	start, err := parseCueTime(m[1], lineNo)
	if err != nil {
		return Entry{}, false, err
	}
	end, err := parseCueTime(m[2], lineNo)
	if err != nil {
		return Entry{}, false, err
	}

	payload := make([]string, 0, len(lines)-timing-1)
	for _, line := range lines[timing+1:] {
		payload = append(payload, strings.TrimSpace(inlineTagRe.ReplaceAllString(line, "")))
	}

	return Entry{Start: start, End: end, Text: strings.Join(payload, "\n")}, true, nil
}

// parseCueTime accepts the short MM:SS.mmm form WebVTT allows for cues
// under an hour and delegates to ParseTimestamp.
func parseCueTime(ts string, lineNo int) (float64, error) {
	if strings.Count(ts, ":") == 1 {
		ts = "00:" + ts
	}
	seconds, err := ParseTimestamp(ts)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Line = lineNo
		}
		return 0, err
	}
	return seconds, nil
}
