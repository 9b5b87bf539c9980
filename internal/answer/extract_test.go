package answer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `Answer: Gradient descent follows the negative gradient.

Video ID: abc123
Title: Optimization Basics
Start Time: 2 minutes and 5 seconds
End Time: 3 minutes and 10 seconds`

func TestExtract(t *testing.T) {
	meta, err := Extract(wellFormed)
	require.NoError(t, err)

	assert.Equal(t, Metadata{VideoID: "abc123", Start: 125, End: 190}, meta)
}

func TestExtract_SingularUnits(t *testing.T) {
	meta, err := Extract("Video ID: v-1\nStart Time: 1 minute and 1 second\nEnd Time: 0 minutes and 59 seconds")
	require.NoError(t, err)

	assert.Equal(t, "v-1", meta.VideoID)
	assert.Equal(t, 61, meta.Start)
	assert.Equal(t, 59, meta.End)
}

func TestExtract_MissingEndTime(t *testing.T) {
	_, err := Extract("Video ID: abc123\nStart Time: 2 minutes and 5 seconds")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParse))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"End Time"}, pe.Missing)
	assert.Contains(t, pe.Answer, "abc123")
}

func TestExtract_NothingMatches(t *testing.T) {
	_, err := Extract("I could not find that in the lectures.")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"Video ID", "Start Time", "End Time"}, pe.Missing)
}

// TestExtract_NonNumericTime verifies a time written in words is not accepted.
func TestExtract_NonNumericTime(t *testing.T) {
	_, err := Extract("Video ID: abc\nStart Time: two minutes and 5 seconds\nEnd Time: 3 minutes and 10 seconds")

	assert.ErrorIs(t, err, ErrParse)
}

func TestAnswerText(t *testing.T) {
	assert.Equal(t, "Gradient descent follows the negative gradient.", AnswerText(wellFormed))
	assert.Equal(t, "plain reply", AnswerText("  plain reply "))
}

func TestFormatMinutes_RoundTrips(t *testing.T) {
	reply := "Video ID: v1\nStart Time: " + FormatMinutes(125) + "\nEnd Time: " + FormatMinutes(59)

	meta, err := Extract(reply)
	require.NoError(t, err)
	assert.Equal(t, 125, meta.Start)
	assert.Equal(t, 59, meta.End)
	assert.Equal(t, "2 minutes and 5 seconds", FormatMinutes(125))
}
