package summarize

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

const (
	defaultParagraphMin = 200
	defaultTopK         = 5
	defaultHybridMax    = 200
	paragraphMinLength  = 20
	metaMinLength       = 50
)

// HybridRequest is one extractive-then-abstractive summarization call.
type HybridRequest struct {
	Text       string
	Language   engine.Language
	MaxLength  int   // overall budget, 0 = 200
	UseRemote  bool  // final pass through the remote backend when one is configured
	Structured *bool // nil = the summarizer's default
}

// HybridResult carries the final summary plus the intermediate stages.
type HybridResult struct {
	Summary            string
	ChunkSummaries     []string
	SelectedParagraphs []engine.ParagraphScore
	ParagraphCount     int
	SelectedCount      int
	Backend            string
	Tier               engine.SummaryTier
	Structured         bool
	Failure            *Failure
}

// OK reports whether a summary was produced.
func (r HybridResult) OK() bool { return r.Failure == nil }

// Text returns the summary or the failure message.
func (r HybridResult) Text() string {
	if r.Failure != nil {
		return r.Failure.Message()
	}
	return r.Summary
}

// Hybrid ranks size-based paragraphs by TF-IDF similarity to the document
// centroid and spends model calls only on the top K.
type Hybrid struct {
	summarizer   *Summarizer
	remote       Backend
	paragraphMin int
	topK         int
}

// HybridOption configures a Hybrid.
type HybridOption func(*Hybrid)

// WithRemote sets the backend used for the optional final pass.
func WithRemote(b Backend) HybridOption { return func(h *Hybrid) { h.remote = b } }

// WithTopK overrides the number of selected paragraphs (default 5).
func WithTopK(k int) HybridOption { return func(h *Hybrid) { h.topK = k } }

// WithParagraphMin overrides the minimum paragraph length in runes (default 200).
func WithParagraphMin(n int) HybridOption { return func(h *Hybrid) { h.paragraphMin = n } }

// NewHybrid wraps s, which summarizes the selected paragraphs and the meta summary.
func NewHybrid(s *Summarizer, opts ...HybridOption) *Hybrid {
	h := &Hybrid{summarizer: s, paragraphMin: defaultParagraphMin, topK: defaultTopK}
	for _, o := range opts {
		o(h)
	}
	return h
}

// HasRemote reports whether a remote final pass is available.
func (h *Hybrid) HasRemote() bool { return h.remote != nil }

// Summarize never panics; any empty stage yields a labeled Failure.
func (h *Hybrid) Summarize(ctx context.Context, req HybridRequest) (res HybridResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("hybrid summarize panic", slog.Any("panic", r))
			res = HybridResult{Failure: &Failure{Kind: FailureExhausted, Language: req.Language, Reason: "internal error"}}
		}
	}()
	fail := func(kind FailureKind) HybridResult {
		engine.IncrSummaryFailure()
		return HybridResult{ParagraphCount: res.ParagraphCount, Failure: &Failure{Kind: kind, Language: req.Language}}
	}

	maxLen := req.MaxLength
	if maxLen <= 0 {
		maxLen = defaultHybridMax
	}

	paragraphs := SplitParagraphs(Normalize(req.Text), h.paragraphMin)
	res.ParagraphCount = len(paragraphs)
	if len(paragraphs) == 0 {
		return fail(FailureParagraphs)
	}

	rows := tfidfMatrix(paragraphs)
	if rows == nil {
		return fail(FailureEmbedding)
	}

	selected := rankParagraphs(paragraphs, rows, min(h.topK, len(paragraphs)))
	if len(selected) == 0 {
		return fail(FailureSelection)
	}

	per := maxLen / len(selected)
	summaries := make([]string, 0, len(selected))
	for i, p := range selected {
		slog.Debug("hybrid paragraph", slog.Int("rank", i+1), slog.Int("index", p.Index),
			slog.Float64("similarity", p.Similarity))
		r := h.summarizer.run(ctx, Request{
			Text: p.Text, Language: req.Language, MaxLength: per, MinLength: paragraphMinLength,
		}, false)
		if !r.OK() {
			slog.Warn("hybrid paragraph summary failed", slog.Int("index", p.Index), slog.String("reason", r.Failure.Reason))
			continue
		}
		summaries = append(summaries, r.Summary)
	}
	if len(summaries) == 0 {
		engine.IncrSummaryFailure()
		return HybridResult{
			ParagraphCount: len(paragraphs), SelectedParagraphs: selected, SelectedCount: len(selected),
			Failure: &Failure{Kind: FailureExhausted, Language: req.Language, Reason: "no paragraph summary"},
		}
	}

	meta := h.summarizer.run(ctx, Request{
		Text: strings.Join(summaries, sentenceSep), Language: req.Language, MaxLength: maxLen, MinLength: metaMinLength,
	}, false)
	res = HybridResult{
		ChunkSummaries:     summaries,
		SelectedParagraphs: selected,
		ParagraphCount:     len(paragraphs),
		SelectedCount:      len(selected),
	}
	if !meta.OK() {
		res.Failure = meta.Failure
		return res
	}
	res.Summary = meta.Summary
	res.Backend = meta.Backend
	res.Tier = meta.Tier

	if req.UseRemote && h.remote != nil {
		out, err := h.summarizer.Chain().SummarizeWith(ctx, h.remote, Request{
			Text: meta.Summary, Language: req.Language, MaxLength: maxLen,
		})
		if err != nil {
			slog.Warn("hybrid remote pass failed, keeping local meta summary",
				slog.String("backend", h.remote.Name()), slog.Any("error", err))
		} else {
			res.Summary = strings.TrimSpace(out)
			res.Backend = h.remote.Name()
			res.Tier = h.remote.Tier()
		}
	}

	structured := h.summarizer.structured
	if req.Structured != nil {
		structured = *req.Structured
	}
	if structured {
		res.Summary, res.Structured = Structure(res.Summary, req.Language)
	}
	return res
}

// SplitParagraphs regroups sentences into paragraphs: sentences accumulate
// until adding the next one would push the paragraph past minLen runes.
func SplitParagraphs(text string, minLen int) []string {
	var out []string
	var cur []string
	curLen := 0
	for _, s := range SplitSentences(text) {
		n := utf8.RuneCountInString(s)
		if len(cur) > 0 && curLen+n > minLen {
			out = append(out, strings.Join(cur, sentenceSep))
			cur, curLen = nil, 0
		}
		cur = append(cur, s)
		curLen += n
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, sentenceSep))
	}
	return out
}

// rankParagraphs orders paragraphs by cosine similarity to the centroid,
// highest first (ties by position), and keeps the first k.
func rankParagraphs(paragraphs []string, rows [][]float64, k int) []engine.ParagraphScore {
	c := centroid(rows)
	scores := make([]engine.ParagraphScore, len(paragraphs))
	for i, p := range paragraphs {
		scores[i] = engine.ParagraphScore{Index: i, Text: p, Similarity: cosine(rows[i], c)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Similarity > scores[j].Similarity
	})
	if k < len(scores) {
		scores = scores[:k]
	}
	return scores
}
