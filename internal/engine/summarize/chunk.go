package summarize

import (
	"strings"
	"unicode/utf8"
)

// sentenceSep is the delimiter sentences are split on and chunks are joined with.
const sentenceSep = " "

func isTerminator(r rune) bool { return r == '.' || r == '!' || r == '?' }

// SplitSentences cuts normalized text after a run of .!? followed by a space.
// Punctuation stays with its sentence, so joining the result with a single
// space gives back the input.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	prevTerm := false
	for i, r := range text {
		if r == ' ' && prevTerm {
			if s := text[start:i]; s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
		prevTerm = isTerminator(r)
	}
	if s := text[start:]; s != "" {
		out = append(out, s)
	}
	return out
}

// Chunk groups sentences greedily into chunks of at most size runes. A sentence
// longer than size becomes its own chunk, never cut.
func Chunk(text string, size int) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if size <= 0 {
		return []string{strings.Join(sentences, sentenceSep)}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if curLen > 0 && curLen+1+n > size {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteString(sentenceSep)
			curLen++
		}
		cur.WriteString(s)
		curLen += n
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
