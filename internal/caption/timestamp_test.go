package caption

import (
	"errors"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"01:02:03.500", 3723.5},
		{"00:00:00.000", 0},
		{"00:00:30.250", 30.25},
		{"10:00:00.001", 36000.001},
	}

	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestParseTimestamp_Malformed verifies every malformed shape is a FormatError.
func TestParseTimestamp_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"02:03.500",       // two fields
		"00:01:02:03.500", // four fields
		"00:01:02",        // no milliseconds
		"00:01:02.5.0",    // extra dot
		"aa:01:02.500",    // non-numeric
	}

	for _, in := range inputs {
		_, err := ParseTimestamp(in)
		if err == nil {
			t.Errorf("ParseTimestamp(%q) expected error, got nil", in)
			continue
		}
		if !errors.Is(err, ErrFormat) {
			t.Errorf("ParseTimestamp(%q) error %v is not ErrFormat", in, err)
		}
		var fe *FormatError
		if !errors.As(err, &fe) || fe.Value != in {
			t.Errorf("ParseTimestamp(%q) expected *FormatError carrying the input, got %v", in, err)
		}
	}
}
