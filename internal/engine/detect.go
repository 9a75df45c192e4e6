package engine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Language is one of the two summary languages.
type Language string

const (
	LangKorean  Language = "ko"
	LangEnglish Language = "en"
)

// Hangul syllables block U+AC00..U+D7A3.
const (
	hangulFirst = '가'
	hangulLast  = '힣'
)

// DetectLanguage classifies text by counting Hangul syllables against ASCII letters.
// Korean wins only with a strictly greater count; ties and empty input are English.
// This is a heuristic for routing, not a language-ID model: mixed or non-Latin,
// non-Korean scripts will simply land on English.
func DetectLanguage(text string) Language {
	// Decomposed jamo (NFD captions) must be composed before counting syllables.
	text = norm.NFC.String(text)

	var korean, latin int
	for _, r := range text {
		switch {
		case IsHangulSyllable(r):
			korean++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	if korean > latin {
		return LangKorean
	}
	return LangEnglish
}

// IsHangulSyllable reports whether r lies in the Hangul syllables block.
func IsHangulSyllable(r rune) bool {
	return r >= hangulFirst && r <= hangulLast
}

// ParseLanguage normalises a user-supplied language field.
// Empty and "auto" return ok=false so the caller can fall back to detection.
func ParseLanguage(s string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ko", "kr", "korean", "한국어":
		return LangKorean, true
	case "en", "english", "영어":
		return LangEnglish, true
	}
	return "", false
}

// Label is the human-readable language name shown next to results.
func (l Language) Label() string {
	if l == LangKorean {
		return "한국어"
	}
	return "English"
}

// LengthBand is an advisory summary length preset.
type LengthBand struct {
	Name      string
	MaxLength int
	MinLength int
}

var lengthBands = map[string]LengthBand{
	"short":  {Name: "short", MaxLength: 100, MinLength: 30},
	"medium": {Name: "medium", MaxLength: 200, MinLength: 50},
	"long":   {Name: "long", MaxLength: 400, MinLength: 100},
	"auto":   {Name: "auto"},
}

// ParseLengthBand maps short|medium|long|auto to length budgets. Unknown → auto.
func ParseLengthBand(s string) LengthBand {
	if b, ok := lengthBands[strings.ToLower(strings.TrimSpace(s))]; ok {
		return b
	}
	return lengthBands["auto"]
}
