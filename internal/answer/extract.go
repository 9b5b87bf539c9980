// Package answer recovers the cited video and time range from a language
// model reply that follows the fixed answer template.
package answer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse is matched by every *ParseError via errors.Is.
var ErrParse = errors.New("answer does not follow the reply template")

// ParseError reports which template fields were missing from a reply.
// It signals that the model ignored the output contract, not an empty result.
type ParseError struct {
	Missing []string // Field labels, e.g. "End Time"
	Answer  string   // Raw reply, kept so callers can still show it
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not extract %s from the answer", strings.Join(e.Missing, ", "))
}

// Is lets callers match any ParseError with errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Metadata is the video and whole-second range cited by a reply.
type Metadata struct {
	VideoID string
	Start   int // Seconds
	End     int // Seconds
}

var (
	videoIDRe   = regexp.MustCompile(`Video ID:\s*(\S+)`)
	startTimeRe = regexp.MustCompile(`Start Time:\s*(\d+)\s*minutes?\s*and\s*(\d+)\s*seconds?`)
	endTimeRe   = regexp.MustCompile(`End Time:\s*(\d+)\s*minutes?\s*and\s*(\d+)\s*seconds?`)
)

// Template is the reply layout the model is instructed to follow.
const Template = `Answer: <your answer here>

Video ID: <video_id>
Title: <title>
Start Time: <start> minutes and seconds
End Time: <end> minutes and seconds`

// Extract parses the Video ID, Start Time and End Time fields of a reply.
// Any missing field yields a *ParseError.
func Extract(text string) (Metadata, error) {
	videoID := videoIDRe.FindStringSubmatch(text)
	start := startTimeRe.FindStringSubmatch(text)
	end := endTimeRe.FindStringSubmatch(text)

	var missing []string
	if videoID == nil {
		missing = append(missing, "Video ID")
	}
	if start == nil {
		missing = append(missing, "Start Time")
	}
	if end == nil {
		missing = append(missing, "End Time")
	}
	if len(missing) > 0 {
		return Metadata{}, &ParseError{Missing: missing, Answer: text}
	}

	startSec, err := minutesAndSeconds(start[1], start[2])
	if err != nil {
		return Metadata{}, &ParseError{Missing: []string{"Start Time"}, Answer: text}
	}
	endSec, err := minutesAndSeconds(end[1], end[2])
	if err != nil {
		return Metadata{}, &ParseError{Missing: []string{"End Time"}, Answer: text}
	}

	return Metadata{VideoID: videoID[1], Start: startSec, End: endSec}, nil
}

func minutesAndSeconds(minutes, seconds string) (int, error) {
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	return m*60 + s, nil
}

// AnswerText returns the free-text part of a reply: everything after
// "Answer:" up to the first template field, trimmed. The whole reply is
// returned when it has no "Answer:" label.
func AnswerText(reply string) string {
	body := reply
	if i := strings.Index(body, "Answer:"); i >= 0 {
		body = body[i+len("Answer:"):]
	}
	if i := strings.Index(body, "Video ID:"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// FormatMinutes renders whole seconds the way the template writes times.
func FormatMinutes(seconds int) string {
	return fmt.Sprintf("%d minutes and %d seconds", seconds/60, seconds%60)
}
