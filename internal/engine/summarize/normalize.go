package summarize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// repeatRun is the run length at which identical runes collapse to one.
const repeatRun = 4

// Normalize cleans transcript text before chunking: NFC, an allow-list of
// Unicode word characters (letters, digits, underscore) and basic
// punctuation, single spaces, and runs of 4+ identical runes collapsed to
// one (ASR stutter).
func Normalize(text string) string {
	text = norm.NFC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	space := true // suppress leading whitespace
	for _, r := range text {
		if !allowed(r) {
			r = ' '
		}
		if r == ' ' || unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
				space = true
			}
			continue
		}
		sb.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(collapseRepeats(sb.String()))
}

func allowed(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsNumber(r), r == '_':
		return true
	case r == '.', r == ',', r == '!', r == '?':
		return true
	}
	return unicode.IsSpace(r)
}

// collapseRepeats replaces every run of repeatRun or more identical runes with a single rune.
func collapseRepeats(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= repeatRun {
			out = append(out, runes[i])
		} else {
			out = append(out, runes[i:j]...)
		}
		i = j
	}
	return string(out)
}
