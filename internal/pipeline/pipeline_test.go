package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/device"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/engine/summarize"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=43s"

type fakeFetcher struct {
	t     engine.Transcript
	err   error
	calls int
	opts  sources.FetchOptions
}

func (f *fakeFetcher) Fetch(_ context.Context, videoID string, opts sources.FetchOptions) (engine.Transcript, error) {
	f.calls++
	f.opts = opts
	t := f.t
	t.VideoID = videoID
	return t, f.err
}

type memArchive struct{ recs []archive.Record }

func (m *memArchive) Save(_ context.Context, r archive.Record) (archive.Record, error) {
	m.recs = append(m.recs, r)
	return r, nil
}
func (m *memArchive) List(context.Context, string, int) ([]archive.Record, error) { return m.recs, nil }
func (m *memArchive) Close() error                                                { return nil }

func captions(texts ...string) engine.Transcript {
	t := engine.Transcript{Title: "Test", Source: engine.SourceCaptions}
	for i, s := range texts {
		t.Segments = append(t.Segments, engine.Segment{Text: s, Start: float64(i), Duration: 1})
	}
	return t
}

func backend(name string, tier engine.SummaryTier, fn func(summarize.Request) (string, error)) summarize.Backend {
	return summarize.BackendFunc{BackendName: name, BackendTier: tier, Fn: func(_ context.Context, req summarize.Request) (string, error) {
		return fn(req)
	}}
}

func newPipeline(t *testing.T, f *fakeFetcher, b summarize.Backend) (*Pipeline, *memArchive) {
	t.Helper()
	engine.Init(engine.Config{})
	chain := summarize.NewChain(context.Background(), time.Second, b).WithRetry(engine.RetryConfig{})
	s := summarize.New(chain)
	arc := &memArchive{}
	return &Pipeline{
		Fetcher:    f,
		Summarizer: s,
		Hybrid:     summarize.NewHybrid(s, summarize.WithParagraphMin(20)),
		Device:     device.CPUProfile(),
		Archive:    arc,
		OutputDir:  t.TempDir(),
	}, arc
}

func TestRunStandard(t *testing.T) {
	var got summarize.Request
	f := &fakeFetcher{t: captions("오늘은 고 언어의 동시성을 다룹니다.", "채널과 고루틴을 설명합니다.", "마지막으로 예제를 봅니다.")}
	p, arc := newPipeline(t, f, backend("llm:gpt-4o-mini", engine.TierRemote, func(req summarize.Request) (string, error) {
		got = req
		return "고 언어 동시성 요약입니다.", nil
	}))

	out, err := p.Run(context.Background(), testURL, Options{Length: "short"})
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, "ko", out.DetectedLanguage)
	assert.Equal(t, "ko", out.SummaryLanguage)
	assert.Equal(t, engine.SourceCaptions, out.TranscriptSource)
	assert.Equal(t, "고 언어 동시성 요약입니다.", out.Summary)
	assert.Equal(t, "LLM gpt-4o-mini", out.Method)
	assert.False(t, out.Failed)
	assert.Equal(t, "youtube_summary_dQw4w9WgXcQ.txt", out.Filename)
	assert.Equal(t, "text/plain", out.MIME)
	assert.Equal(t, 100, got.MaxLength)
	assert.Equal(t, 30, got.MinLength)
	assert.Empty(t, out.Transcript)
	assert.Greater(t, out.CompressionPct, 0.0)
	assert.False(t, f.opts.AllowASR, "server default applies when the request leaves it unset")

	data, err := os.ReadFile(out.SavedTo)
	require.NoError(t, err)
	assert.Equal(t, out.Summary+"\n", string(data))

	require.Len(t, arc.recs, 1)
	assert.Equal(t, "standard", arc.recs[0].Mode)
	assert.Equal(t, out.Method, arc.recs[0].Method)
}

func TestRunLanguageRouting(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		honor     bool
		want      string
	}{
		{"auto uses detected", "auto", false, "en"},
		{"mismatch keeps detected", "ko", false, "en"},
		{"mismatch honored", "ko", true, "ko"},
		{"match", "en", false, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lang engine.Language
			f := &fakeFetcher{t: captions("Go has goroutines.", "Channels connect them.", "Select waits on both.")}
			p, _ := newPipeline(t, f, backend("local-cpu:m", engine.TierCPU, func(req summarize.Request) (string, error) {
				lang = req.Language
				return "A summary.", nil
			}))
			engine.Cfg.HonorRequestedLanguage = tt.honor

			out, err := p.Run(context.Background(), testURL, Options{Language: tt.requested})
			require.NoError(t, err)
			assert.Equal(t, "en", out.DetectedLanguage)
			assert.Equal(t, tt.want, out.SummaryLanguage)
			assert.Equal(t, engine.Language(tt.want), lang)
			assert.Equal(t, "Local CPU", out.Method)
		})
	}
}

func TestRunInvalidURL(t *testing.T) {
	f := &fakeFetcher{}
	p, _ := newPipeline(t, f, backend("b", engine.TierCPU, func(summarize.Request) (string, error) { return "x", nil }))
	_, err := p.Run(context.Background(), "not a url", Options{})
	require.ErrorIs(t, err, ErrInvalidURL)
	assert.Zero(t, f.calls)
}

func TestRunTranscriptUnavailable(t *testing.T) {
	yes := true
	f := &fakeFetcher{
		t:   engine.Transcript{Title: "Private"},
		err: &sources.UnavailableError{VideoID: "dQw4w9WgXcQ", Reason: "no captions; download audio: blocked"},
	}
	p, arc := newPipeline(t, f, backend("b", engine.TierCPU, func(summarize.Request) (string, error) { return "x", nil }))

	out, err := p.Run(context.Background(), testURL, Options{AllowASR: &yes})
	require.ErrorIs(t, err, sources.ErrTranscriptUnavailable)
	assert.Equal(t, "Private", out.Title)
	assert.True(t, f.opts.AllowASR)
	assert.Empty(t, arc.recs)
}

func TestRunSummaryFailureIsNotAnError(t *testing.T) {
	f := &fakeFetcher{t: captions("Some words here.")}
	p, arc := newPipeline(t, f, backend("b", engine.TierCPU, func(summarize.Request) (string, error) {
		return "", errors.New("model not loaded")
	}))

	out, err := p.Run(context.Background(), testURL, Options{})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, "failed", out.Method)
	assert.Contains(t, out.Summary, "Summarization failed")
	assert.Empty(t, out.SavedTo)
	assert.Empty(t, arc.recs)
}

func TestRunHybrid(t *testing.T) {
	f := &fakeFetcher{t: captions(
		"Goroutines are cheap threads managed by the runtime.",
		"Channels let goroutines communicate safely.",
		"The select statement waits on several channels at once.",
	)}
	p, arc := newPipeline(t, f, backend("local-8bit:m", engine.Tier8Bit, func(req summarize.Request) (string, error) {
		return engine.TruncateRunes(req.Text, 40, ""), nil
	}))
	p.Device = device.Profile{GPUAvailable: true, GPUName: "RTX 3060", VRAMGB: 8, Device: device.DeviceGPU}

	out, err := p.Run(context.Background(), testURL, Options{Mode: ModeHybrid, IncludeTranscript: true})
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.NotEmpty(t, out.Summary)
	assert.Equal(t, min(5, out.ParagraphCount), out.SelectedCount)
	assert.Len(t, out.SelectedParagraphs, out.SelectedCount)
	assert.NotEmpty(t, out.ChunkSummaries)
	assert.Equal(t, "Hybrid · Local 8-bit (GPU: RTX 3060)", out.Method)
	assert.True(t, strings.HasPrefix(out.Transcript, "Goroutines are cheap"))
	require.Len(t, arc.recs, 1)
	assert.Equal(t, "hybrid", arc.recs[0].Mode)
}

func TestTranscriptCached(t *testing.T) {
	f := &fakeFetcher{t: captions("cached line")}
	p, _ := newPipeline(t, f, backend("b", engine.TierCPU, func(summarize.Request) (string, error) { return "x", nil }))
	engine.InitCache("", time.Minute, 100, time.Hour)
	t.Cleanup(engine.CloseCache)

	for range 3 {
		tr, err := p.Transcript(context.Background(), testURL, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "cached line", tr.Text())
	}
	assert.Equal(t, 1, f.calls)
}

func TestMethodLabel(t *testing.T) {
	gpu := device.Profile{GPUAvailable: true, GPUName: "RTX 4070", Device: device.DeviceGPU}
	tests := []struct {
		mode    Mode
		backend string
		tier    engine.SummaryTier
		dev     device.Profile
		want    string
	}{
		{ModeStandard, "llm:gpt-4o-mini", engine.TierRemote, gpu, "LLM gpt-4o-mini"},
		{ModeStandard, "gemini:gemini-2.5-flash", engine.TierRemote, device.CPUProfile(), "LLM gemini-2.5-flash"},
		{ModeStandard, "local-full:qwen", engine.TierFull, gpu, "Local full precision (GPU: RTX 4070)"},
		{ModeStandard, "local-4bit:qwen", engine.Tier4Bit, device.CPUProfile(), "Local 4-bit"},
		{ModeStandard, "local-cpu:qwen", engine.TierCPU, gpu, "Local CPU"},
		{ModeHybrid, "local-cpu:qwen", engine.TierCPU, gpu, "Hybrid · Local CPU"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MethodLabel(tt.mode, tt.backend, tt.tier, tt.dev))
	}
}

func TestCompressionPct(t *testing.T) {
	assert.Equal(t, 0.0, CompressionPct(0, 10))
	assert.Equal(t, 87.5, CompressionPct(800, 100))
	assert.Equal(t, 66.7, CompressionPct(3, 1))
	assert.Equal(t, 0.0, CompressionPct(50, 50))
	assert.Equal(t, -100.0, CompressionPct(10, 20))
}
