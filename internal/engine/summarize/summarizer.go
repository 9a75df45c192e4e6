package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// DefaultMaxDepth bounds the number of map rounds in the reduce step.
const DefaultMaxDepth = 3

// FailureKind labels why no summary was produced.
type FailureKind string

const (
	FailureEmpty      FailureKind = "empty"
	FailureExhausted  FailureKind = "exhausted"
	FailureParagraphs FailureKind = "paragraphs"
	FailureEmbedding  FailureKind = "embedding"
	FailureSelection  FailureKind = "selection"
)

var failureText = map[FailureKind][2]string{ // {ko, en}
	FailureEmpty:      {"요약할 텍스트가 없습니다.", "There is no text to summarize."},
	FailureParagraphs: {"문단을 분할할 수 없습니다.", "The text could not be split into paragraphs."},
	FailureEmbedding:  {"임베딩 생성에 실패했습니다.", "Failed to build paragraph embeddings."},
	FailureSelection:  {"중요한 문단을 찾을 수 없습니다.", "No important paragraphs were found."},
}

// Failure is a labeled summarization failure. Reason is display text only.
type Failure struct {
	Kind     FailureKind
	Language engine.Language
	Reason   string
}

// Message renders the user-facing failure template.
func (f *Failure) Message() string {
	if t, ok := failureText[f.Kind]; ok {
		if f.Language == engine.LangKorean {
			return t[0]
		}
		return t[1]
	}
	if f.Language == engine.LangKorean {
		return "요약 실패: 사용 가능한 요약 백엔드가 모두 실패했습니다. (" + f.Reason + ")"
	}
	return "Summarization failed: all summarization backends were exhausted. (" + f.Reason + ")"
}

func (f *Failure) Error() string { return f.Message() }

// Result is either a summary or a Failure; it is never both.
type Result struct {
	Summary    string
	Backend    string // backend that produced the final pass
	Tier       engine.SummaryTier
	Chunks     int // chunks in the first map round
	Depth      int // map rounds performed
	Structured bool
	Failure    *Failure
}

// OK reports whether a summary was produced.
func (r Result) OK() bool { return r.Failure == nil }

// Text returns the summary or the failure message.
func (r Result) Text() string {
	if r.Failure != nil {
		return r.Failure.Message()
	}
	return r.Summary
}

// Summarizer runs normalize → chunk → map → reduce over a backend chain.
type Summarizer struct {
	chain      *Chain
	chunkSize  int
	maxDepth   int
	structured bool
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithChunkSize overrides the chunk size derived from the primary backend tier.
func WithChunkSize(n int) Option { return func(s *Summarizer) { s.chunkSize = n } }

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option { return func(s *Summarizer) { s.maxDepth = n } }

// WithStructured enables key points + full summary post-processing.
func WithStructured(on bool) Option { return func(s *Summarizer) { s.structured = on } }

// New creates a Summarizer over chain.
func New(chain *Chain, opts ...Option) *Summarizer {
	if chain == nil {
		chain = &Chain{}
	}
	s := &Summarizer{chain: chain, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(s)
	}
	if s.chunkSize <= 0 {
		tier := engine.TierCPU
		if p := chain.Primary(); p != nil {
			tier = p.Tier()
		}
		s.chunkSize = tier.ChunkSize()
	}
	if s.maxDepth <= 0 {
		s.maxDepth = DefaultMaxDepth
	}
	return s
}

// Chain returns the backend chain.
func (s *Summarizer) Chain() *Chain { return s.chain }

// ChunkSize returns the chunk size in runes.
func (s *Summarizer) ChunkSize() int { return s.chunkSize }

// Structured reports the configured post-processing default.
func (s *Summarizer) Structured() bool { return s.structured }

// Summarize never panics and never returns an error: failures come back as
// Result.Failure with a readable reason.
func (s *Summarizer) Summarize(ctx context.Context, req Request) Result {
	return s.run(ctx, req, s.structured)
}

// SummarizeAs is Summarize with the structured post-process chosen per call.
func (s *Summarizer) SummarizeAs(ctx context.Context, req Request, structured bool) Result {
	return s.run(ctx, req, structured)
}

func (s *Summarizer) run(ctx context.Context, req Request, structured bool) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("summarize panic", slog.Any("panic", r))
			engine.IncrSummaryFailure()
			res = Result{Failure: &Failure{Kind: FailureExhausted, Language: req.Language, Reason: fmt.Sprint(r)}}
		}
	}()

	text := Normalize(req.Text)
	if text == "" {
		engine.IncrSummaryFailure()
		return Result{Failure: &Failure{Kind: FailureEmpty, Language: req.Language}}
	}

	st := &reduceState{}
	summary, err := s.reduce(ctx, text, req, st)
	if err != nil {
		engine.IncrSummaryFailure()
		return Result{Failure: &Failure{Kind: FailureExhausted, Language: req.Language, Reason: reason(err)}}
	}

	res = Result{Summary: summary, Chunks: st.chunks, Depth: st.depth}
	if st.backend != nil {
		res.Backend = st.backend.Name()
		res.Tier = st.backend.Tier()
	}
	if structured {
		res.Summary, res.Structured = Structure(summary, req.Language)
	}
	return res
}

type reduceState struct {
	depth   int
	chunks  int
	backend Backend
}

func (s *Summarizer) reduce(ctx context.Context, text string, req Request, st *reduceState) (string, error) {
	chunks := Chunk(text, s.chunkSize)
	if st.depth == 0 {
		st.chunks = len(chunks)
	}
	if len(chunks) <= 1 {
		return s.pass(ctx, text, req, st)
	}

	st.depth++
	parts := make([]string, 0, len(chunks))
	var lastErr error
	for i, c := range chunks {
		out, b, err := s.chain.Summarize(ctx, withText(req, c))
		if err != nil {
			slog.Warn("chunk summary failed", slog.Int("chunk", i), slog.Int("depth", st.depth), slog.Any("error", err))
			lastErr = err
			continue
		}
		st.backend = b
		parts = append(parts, strings.TrimSpace(out))
	}
	if len(parts) == 0 {
		return "", lastErr
	}

	joined := strings.Join(parts, sentenceSep)
	if utf8.RuneCountInString(joined) <= s.chunkSize {
		return s.pass(ctx, joined, req, st)
	}
	if st.depth >= s.maxDepth {
		slog.Warn("reduce depth limit reached, truncating",
			slog.Int("depth", st.depth), slog.Int("runes", utf8.RuneCountInString(joined)))
		return engine.TruncateRunes(joined, s.chunkSize, "..."), nil
	}
	next := Normalize(joined)
	if next == "" {
		return engine.TruncateRunes(joined, s.chunkSize, "..."), nil
	}
	return s.reduce(ctx, next, req, st)
}

func (s *Summarizer) pass(ctx context.Context, text string, req Request, st *reduceState) (string, error) {
	out, b, err := s.chain.Summarize(ctx, withText(req, text))
	if err != nil {
		return "", err
	}
	st.backend = b
	return strings.TrimSpace(out), nil
}

func withText(req Request, text string) Request {
	req.Text = text
	return req
}

// reason keeps the first line of err, capped for display.
func reason(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return engine.TruncateRunes(msg, 200, "...")
}
