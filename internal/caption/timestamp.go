package caption

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrFormat is matched by every *FormatError via errors.Is.
var ErrFormat = errors.New("malformed timestamp")

// FormatError reports a caption timestamp that is not HH:MM:SS.mmm.
type FormatError struct {
	Value  string // Offending input
	Line   int    // 1-based line in the subtitle track, 0 when unknown
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: malformed timestamp %q: %s", e.Line, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed timestamp %q: %s", e.Value, e.Reason)
}

// Is lets callers match any FormatError with errors.Is(err, ErrFormat).
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ParseTimestamp converts an HH:MM:SS.mmm timestamp into seconds.
func ParseTimestamp(ts string) (float64, error) {
	fields := strings.Split(ts, ":")
	if len(fields) != 3 {
		return 0, &FormatError{Value: ts, Reason: "expected three ':'-separated fields"}
	}

	secParts := strings.Split(fields[2], ".")
	if len(secParts) != 2 {
		return 0, &FormatError{Value: ts, Reason: "seconds field lacks a millisecond component"}
	}

	values := make([]int, 4)
	for i, raw := range []string{fields[0], fields[1], secParts[0], secParts[1]} {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, &FormatError{Value: ts, Reason: fmt.Sprintf("field %q is not an integer", raw)}
		}
		values[i] = v
	}

	h, m, s, ms := values[0], values[1], values[2], values[3]
	return float64(h*3600+m*60+s) + float64(ms)/1000, nil
}
