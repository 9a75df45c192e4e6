package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

func newEchoHybrid(opts ...HybridOption) *Hybrid {
	s := New(NewChain(context.Background(), time.Second, echoBackend("echo", nil)))
	return NewHybrid(s, opts...)
}

func TestHybridThreeSentences(t *testing.T) {
	h := newEchoHybrid()
	res := h.Summarize(context.Background(), HybridRequest{
		Text:     "Go is a fast language. Go is a simple language. Go is a fun language.",
		Language: engine.LangEnglish,
	})
	require.True(t, res.OK(), "failure: %v", res.Failure)
	assert.Equal(t, min(5, res.ParagraphCount), res.SelectedCount)
	assert.Equal(t, 1, res.ParagraphCount)
	assert.NotEmpty(t, res.Summary)
	assert.Len(t, res.ChunkSummaries, 1)
	assert.Len(t, res.SelectedParagraphs, 1)
}

func longTopicText(n int) string {
	topics := []string{"compilers", "gardening", "football", "databases", "cooking", "astronomy", "music", "finance"}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		topic := topics[i%len(topics)]
		fmt.Fprintf(&sb, "Paragraph %d talks about %s and why %s matters for video viewers today in long form detail. ", i, topic, topic)
	}
	return sb.String()
}

func TestHybridSelectsTopK(t *testing.T) {
	h := newEchoHybrid()
	res := h.Summarize(context.Background(), HybridRequest{Text: longTopicText(16), Language: engine.LangEnglish})
	require.True(t, res.OK(), "failure: %v", res.Failure)
	require.Greater(t, res.ParagraphCount, 5)
	assert.Equal(t, 5, res.SelectedCount)
	assert.Len(t, res.ChunkSummaries, 5)

	for i := 1; i < len(res.SelectedParagraphs); i++ {
		assert.GreaterOrEqual(t, res.SelectedParagraphs[i-1].Similarity, res.SelectedParagraphs[i].Similarity)
	}
}

func TestHybridFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind FailureKind
	}{
		{"empty", "", FailureParagraphs},
		{"no vocabulary", "a b c. d e f.", FailureEmbedding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newEchoHybrid().Summarize(context.Background(), HybridRequest{Text: tt.text, Language: engine.LangKorean})
			require.False(t, res.OK())
			assert.Equal(t, tt.kind, res.Failure.Kind)
			assert.NotEmpty(t, res.Text())
		})
	}
}

func TestHybridNoBackends(t *testing.T) {
	h := NewHybrid(New(NewChain(context.Background(), time.Second)))
	res := h.Summarize(context.Background(), HybridRequest{Text: "Some real words here. More real words.", Language: engine.LangEnglish})
	require.False(t, res.OK())
	assert.Equal(t, FailureExhausted, res.Failure.Kind)
	assert.Equal(t, 1, res.SelectedCount)
}

func TestHybridRemotePass(t *testing.T) {
	remote := fixedBackend("llm", "Remote final summary.")
	text := "Go is a fast language. Go is a simple language."

	h := newEchoHybrid(WithRemote(remote))
	require.True(t, h.HasRemote())

	res := h.Summarize(context.Background(), HybridRequest{Text: text, Language: engine.LangEnglish, UseRemote: true})
	require.True(t, res.OK())
	assert.Equal(t, "Remote final summary.", res.Summary)
	assert.Equal(t, "llm", res.Backend)

	res = h.Summarize(context.Background(), HybridRequest{Text: text, Language: engine.LangEnglish})
	require.True(t, res.OK())
	assert.Equal(t, "echo", res.Backend)
}

func TestHybridRemoteFailureKeepsMeta(t *testing.T) {
	h := newEchoHybrid(WithRemote(failingBackend("llm")))
	res := h.Summarize(context.Background(), HybridRequest{Text: "Keep this local summary.", Language: engine.LangEnglish, UseRemote: true})
	require.True(t, res.OK())
	assert.Equal(t, "Keep this local summary.", res.Summary)
}

func TestHybridBudgetSplit(t *testing.T) {
	var budgets []int
	rec := BackendFunc{
		BackendName: "rec",
		BackendTier: engine.TierCPU,
		Fn: func(_ context.Context, req Request) (string, error) {
			budgets = append(budgets, req.MaxLength)
			return "Short summary.", nil
		},
	}
	h := NewHybrid(New(NewChain(context.Background(), time.Second, rec)))
	res := h.Summarize(context.Background(), HybridRequest{Text: longTopicText(16), Language: engine.LangEnglish, MaxLength: 400})
	require.True(t, res.OK())
	require.Len(t, budgets, 6)
	for _, b := range budgets[:5] {
		assert.Equal(t, 80, b)
	}
	assert.Equal(t, 400, budgets[5])
}

func TestSplitParagraphs(t *testing.T) {
	text := Normalize(strings.Repeat("This sentence has exactly some words. ", 12))
	paras := SplitParagraphs(text, 100)
	require.NotEmpty(t, paras)
	assert.Equal(t, text, strings.Join(paras, sentenceSep))
	assert.Nil(t, SplitParagraphs("", 200))
}

func TestTFIDF(t *testing.T) {
	rows := tfidfMatrix([]string{"go go fast", "go slow", "python snakes"})
	require.Len(t, rows, 3)

	for _, r := range rows {
		var sum float64
		for _, x := range r {
			sum += x * x
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	assert.Greater(t, cosine(rows[0], rows[1]), 0.0)
	assert.InDelta(t, 0.0, cosine(rows[0], rows[2]), 1e-9)
	assert.InDelta(t, 1.0, cosine(rows[0], rows[0]), 1e-9)

	assert.Nil(t, tfidfMatrix([]string{"a b", "c"}))
	assert.Equal(t, []string{"hello", "세계", "go_1"}, tokenize("Hello, 세계! a go_1"))
}
