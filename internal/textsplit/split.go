// Package textsplit re-chunks long text under a hard length limit, preferring
// natural break points so the pieces stay readable when delivered through
// messengers or APIs with message-size caps.
package textsplit

import "strings"

// DefaultMaxLength matches the common messenger message-size limit.
const DefaultMaxLength = 4096

// separators in priority order. The first one found wins; the split lands
// immediately after it so the separator stays with the preceding chunk.
var separators = [][]rune{
	[]rune("\n"),
	[]rune(". "),
	[]rune(", "),
	[]rune(" — "),
	[]rune(" – "),
	[]rune(" - "),
}

// Split breaks text into ordered chunks of at most maxLength runes each.
// Lengths are measured in runes, so a split can land mid-word but never inside
// a multi-byte character. Each chunk is trimmed of surrounding whitespace.
// The function is pure: no I/O, deterministic for given inputs.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var chunks []string
	runes := []rune(text)

	for len(runes) > maxLength {
		window := runes[:maxLength]

		splitAt := maxLength // hard cut when no separator is found
		for _, sep := range separators {
			if idx := lastIndexRunes(window, sep); idx != -1 {
				splitAt = idx + len(sep)
				break
			}
		}

		chunks = append(chunks, strings.TrimSpace(string(runes[:splitAt])))
		runes = []rune(strings.TrimSpace(string(runes[splitAt:])))
	}

	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// lastIndexRunes returns the index of the rightmost occurrence of sep in r,
// or -1 if sep does not occur.
func lastIndexRunes(r, sep []rune) int {
	for i := len(r) - len(sep); i >= 0; i-- {
		if runesEqual(r[i:i+len(sep)], sep) {
			return i
		}
	}
	return -1
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
