// Package toolutil provides shared helpers for the go_ytsum MCP tools and CLI.
package toolutil

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// BoolOr dereferences p, or returns def when p is nil.
func BoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// LogProgress returns a ProgressFunc that logs every step percent.
func LogProgress(op, videoID string, step int) engine.ProgressFunc {
	if step <= 0 {
		step = 10
	}
	var last atomic.Int64
	last.Store(-1)
	return func(percent int) {
		bucket := int64(percent / step)
		if last.Swap(bucket) == bucket {
			return
		}
		slog.Info(op+" progress", slog.String("id", videoID), slog.Int("percent", percent))
	}
}

// FormatSummary renders a summarize result as plain text: a short header
// followed by the summary body.
func FormatSummary(out engine.SummarizeOutput) string {
	var b strings.Builder
	if out.Title != "" {
		fmt.Fprintf(&b, "# %s\n", out.Title)
	}
	fmt.Fprintf(&b, "Video: %s\n", out.VideoID)
	if out.Failed {
		b.WriteString("Status: failed\n\n")
		b.WriteString(out.Summary)
		b.WriteString("\n")
		return b.String()
	}
	detected, _ := engine.ParseLanguage(out.DetectedLanguage)
	target, _ := engine.ParseLanguage(out.SummaryLanguage)
	fmt.Fprintf(&b, "Transcript: %s (%s)\n", out.TranscriptSource, detected.Label())
	fmt.Fprintf(&b, "Method: %s\n", out.Method)
	fmt.Fprintf(&b, "Summary language: %s\n", target.Label())
	fmt.Fprintf(&b, "Length: %d -> %d chars (%.1f%% shorter)\n", out.TranscriptChars, out.SummaryChars, out.CompressionPct)
	if out.SavedTo != "" {
		fmt.Fprintf(&b, "Saved: %s\n", out.SavedTo)
	}
	b.WriteString("\n")
	b.WriteString(out.Summary)
	b.WriteString("\n")
	if len(out.ChunkSummaries) > 0 {
		fmt.Fprintf(&b, "\n--- %d of %d paragraphs selected ---\n", out.SelectedCount, out.ParagraphCount)
		for i, s := range out.ChunkSummaries {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	return b.String()
}
