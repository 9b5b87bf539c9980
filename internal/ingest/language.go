package ingest

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/bull/video-rag/internal/chunker"
)

// sampleChars caps how much caption text language detection looks at.
const sampleChars = 4000

// DetectLanguage returns the ISO 639-1 code of the chunks' caption text, or
// "" when detection is not reliable.
func DetectLanguage(chunks []chunker.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if b.Len() >= sampleChars {
			break
		}
		b.WriteString(c.Text)
		b.WriteByte(' ')
	}

	info := whatlanggo.Detect(b.String())
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
