package toolutil

import (
	"strings"
	"testing"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

func TestBoolOr(t *testing.T) {
	yes, no := true, false
	if !BoolOr(&yes, false) || BoolOr(&no, true) || !BoolOr(nil, true) || BoolOr(nil, false) {
		t.Error("BoolOr returned the wrong value")
	}
}

func TestFormatSummary(t *testing.T) {
	out := engine.SummarizeOutput{
		VideoID:          "dQw4w9WgXcQ",
		Title:            "Demo",
		DetectedLanguage: "ko",
		SummaryLanguage:  "ko",
		TranscriptSource: "captions",
		Method:           "LLM gpt-4o-mini",
		Summary:          "요약 본문",
		TranscriptChars:  1000,
		SummaryChars:     125,
		CompressionPct:   87.5,
	}
	got := FormatSummary(out)
	for _, want := range []string{"# Demo\n", "Video: dQw4w9WgXcQ", "captions (한국어)", "Method: LLM gpt-4o-mini", "1000 -> 125 chars (87.5% shorter)", "\n\n요약 본문\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatSummary missing %q in:\n%s", want, got)
		}
	}

	out.Failed = true
	out.Summary = "Summarization failed"
	got = FormatSummary(out)
	if !strings.Contains(got, "Status: failed") || strings.Contains(got, "Method:") {
		t.Errorf("failed rendering:\n%s", got)
	}
}

func TestLogProgressDedupesBuckets(t *testing.T) {
	fn := LogProgress("asr", "x", 10)
	for p := 0; p < 100; p++ {
		fn(p)
	}
}
