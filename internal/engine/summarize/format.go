package summarize

import (
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

const (
	structureMinRunes     = 50
	structureMinSentences = 3
	maxKeyPoints          = 7
)

// Structure renders summary as a key-points bullet list followed by the full
// prose under a second heading. Summaries shorter than 50 runes or with fewer
// than 3 sentences are returned unchanged with ok=false.
func Structure(summary string, lang engine.Language) (string, bool) {
	flat := engine.CollapseSpaces(summary)
	if utf8.RuneCountInString(flat) < structureMinRunes {
		return summary, false
	}
	sentences := SplitSentences(flat)
	if len(sentences) < structureMinSentences {
		return summary, false
	}
	if len(sentences) > maxKeyPoints {
		sentences = sentences[:maxKeyPoints]
	}

	var sb strings.Builder
	sb.WriteString(engine.KeyPointsHeading(lang))
	sb.WriteString("\n\n")
	for _, s := range sentences {
		sb.WriteString("- ")
		sb.WriteString(strings.TrimSpace(s))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(engine.FullSummaryHeading(lang))
	sb.WriteString("\n\n")
	sb.WriteString(strings.TrimSpace(summary))
	return sb.String(), true
}
