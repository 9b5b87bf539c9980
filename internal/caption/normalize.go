package caption

import (
	"strings"
	"unicode"
)

// fillers are dropped when a whitespace-separated token matches one,
// case-insensitively. "you know" spans two tokens and so never matches a
// single token; it is kept for parity with the existing caption data.
var fillers = map[string]struct{}{
	"uh":       {},
	"um":       {},
	"you know": {},
	"like":     {},
}

// Repeated-phrase bounds for collapseRepeats, in runes.
const (
	minPhraseLen = 3
	maxPhraseLen = 20
)

// Normalize cleans raw caption text for indexing.
//
// Steps run in a fixed order: filler removal, repeated-trigram removal,
// then collapsing of immediately repeated phrases. The last step cleans up
// residue the trigram pass leaves behind. Normalize is not idempotent:
// re-running it on short outputs can shrink them further.
func Normalize(raw string) string {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))

	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, t := range tokens {
		if _, ok := fillers[strings.ToLower(t)]; ok {
			continue
		}
		kept = append(kept, t)
	}
	text = strings.Join(kept, " ")

	text = removeRepeatedTrigrams(text)
	return collapseRepeats(text)
}

// removeRepeatedTrigrams drops the word starting any trigram already seen
// earlier in the text. The seen set spans the whole input, not a window.
// The final two words are always kept.
func removeRepeatedTrigrams(text string) string {
	words := strings.Fields(text)
	cleaned := make([]string, 0, len(words))
	seen := make(map[string]struct{})

	for i := 0; i < len(words)-2; i++ {
		trigram := strings.Join(words[i:i+3], " ")
		if _, dup := seen[trigram]; dup {
			continue
		}
		seen[trigram] = struct{}{}
		cleaned = append(cleaned, words[i])
	}
	cleaned = append(cleaned, words[max(0, len(words)-2):]...)

	return strings.Join(cleaned, " ")
}

// collapseRepeats rewrites every leftmost run "P P P..." to "P", where P is
// 3 to 20 word or space characters bounded by word boundaries and each
// repeat is separated by a single space. Longer phrases are tried first.
func collapseRepeats(text string) string {
	r := []rune(text)
	out := make([]rune, 0, len(r))

	for i := 0; i < len(r); {
		if n, end := repeatedPhraseAt(r, i); n > 0 {
			out = append(out, r[i:i+n]...)
			i = end
			continue
		}
		out = append(out, r[i])
		i++
	}

	return string(out)
}

// repeatedPhraseAt returns the phrase length and the end of the repeated run
// starting at p, or zero when no run starts there.
func repeatedPhraseAt(r []rune, p int) (int, int) {
	if !isBoundary(r, p) {
		return 0, 0
	}

	span := 0
	for span < maxPhraseLen && p+span < len(r) && isPhraseRune(r[p+span]) {
		span++
	}

	for n := span; n >= minPhraseLen; n-- {
		if !isBoundary(r, p+n) {
			continue
		}
		phrase := r[p : p+n]
		end := p + n
		repeats := 0
		for repeatsAt(r, end, phrase) {
			end += 1 + n
			repeats++
		}
		if repeats > 0 {
			return n, end
		}
	}

	return 0, 0
}

// repeatsAt reports whether r[at:] starts with a space followed by phrase.
func repeatsAt(r []rune, at int, phrase []rune) bool {
	if at+1+len(phrase) > len(r) || r[at] != ' ' {
		return false
	}
	for i, c := range phrase {
		if r[at+1+i] != c {
			return false
		}
	}
	return true
}

func isBoundary(r []rune, p int) bool {
	before := p > 0 && isWordRune(r[p-1])
	after := p < len(r) && isWordRune(r[p])
	return before != after
}

func isWordRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

func isPhraseRune(c rune) bool {
	return isWordRune(c) || unicode.IsSpace(c)
}
