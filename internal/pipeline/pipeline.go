// Package pipeline wires URL parsing, transcript acquisition, language
// routing and summarization into one request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/device"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/engine/summarize"
	"github.com/anatolykoptev/go_ytsum/internal/toolutil"
)

// ErrInvalidURL is returned when no video id can be extracted.
var ErrInvalidURL = errors.New("invalid YouTube URL")

// slowThreshold flags requests worth a warning in the logs.
const slowThreshold = 2 * time.Minute

// Mode selects the summarization path.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeHybrid   Mode = "hybrid"
)

// TranscriptFetcher is satisfied by *sources.Fetcher.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string, opts sources.FetchOptions) (engine.Transcript, error)
}

// Options are the per-request knobs. Empty fields fall back to engine.Cfg.
type Options struct {
	Mode              Mode
	Language          string // ko, en, auto
	Length            string // short, medium, long, auto
	AllowASR          *bool
	Structured        *bool
	IncludeTranscript bool
	UseRemote         bool
	Progress          engine.ProgressFunc
}

// Pipeline holds the long-lived services one request runs through.
type Pipeline struct {
	Fetcher    TranscriptFetcher
	Summarizer *summarize.Summarizer
	Hybrid     *summarize.Hybrid // nil = hybrid mode falls back to standard
	Device     device.Profile
	Archive    archive.Store // nil = history off
	OutputDir  string        // "" = artifact not written to disk
}

// VideoID extracts the id or returns an error wrapping ErrInvalidURL.
func VideoID(rawURL string) (string, error) {
	id, err := sources.ExtractVideoID(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, engine.TruncateRunes(rawURL, 100, "..."))
	}
	return id, nil
}

// Transcript returns the (cached) transcript for rawURL.
func (p *Pipeline) Transcript(ctx context.Context, rawURL string, allowASR *bool, progress engine.ProgressFunc) (engine.Transcript, error) {
	id, err := VideoID(rawURL)
	if err != nil {
		return engine.Transcript{}, err
	}
	return p.transcript(ctx, id, allowASR, progress)
}

func (p *Pipeline) transcript(ctx context.Context, id string, allowASR *bool, progress engine.ProgressFunc) (engine.Transcript, error) {
	key := engine.CacheKey("transcript", id)
	if t, ok := engine.CacheLoadJSON[engine.Transcript](ctx, key); ok && len(t.Segments) > 0 {
		return t, nil
	}

	allow := toolutil.BoolOr(allowASR, engine.Cfg.AllowASR)
	t, err := p.Fetcher.Fetch(ctx, id, sources.FetchOptions{
		Languages: sources.DefaultCaptionLanguages,
		AllowASR:  allow,
		Progress:  progress,
	})
	if err != nil {
		return t, err
	}
	engine.CacheStoreJSON(ctx, key, t)
	return t, nil
}

// Run summarizes the video behind rawURL. Input and transcript errors are
// returned; a summarization failure is reported in the output (Failed=true)
// with a readable message instead of an error.
func (p *Pipeline) Run(ctx context.Context, rawURL string, opts Options) (out engine.SummarizeOutput, err error) {
	_ = engine.TrackOperation(ctx, "summarize:"+rawURL, slowThreshold, func(ctx context.Context) error {
		out, err = p.run(ctx, rawURL, opts)
		return err
	})
	return
}

func (p *Pipeline) run(ctx context.Context, rawURL string, opts Options) (engine.SummarizeOutput, error) {
	id, err := VideoID(rawURL)
	if err != nil {
		return engine.SummarizeOutput{}, err
	}
	mode := opts.Mode
	if mode == ModeHybrid && p.Hybrid == nil {
		slog.Warn("hybrid summarizer not configured, using standard mode")
		mode = ModeStandard
	}
	if mode == ModeHybrid {
		engine.IncrHybridRequests()
	} else {
		mode = ModeStandard
		engine.IncrSummarizeRequests()
	}

	t, err := p.transcript(ctx, id, opts.AllowASR, opts.Progress)
	if err != nil {
		return engine.SummarizeOutput{VideoID: id, Title: t.Title}, err
	}
	text := t.Text()
	detected := engine.DetectLanguage(text)

	requested := opts.Language
	if requested == "" {
		requested = engine.Cfg.SummaryLanguage
	}
	target := ResolveLanguage(requested, detected, engine.Cfg.HonorRequestedLanguage)

	lengthName := opts.Length
	if lengthName == "" {
		lengthName = engine.Cfg.SummaryLength
	}
	band := engine.ParseLengthBand(lengthName)

	structured := toolutil.BoolOr(opts.Structured, p.Summarizer.Structured())

	out := engine.SummarizeOutput{
		VideoID:          id,
		Title:            t.Title,
		DetectedLanguage: string(detected),
		SummaryLanguage:  string(target),
		TranscriptSource: t.Source,
		Filename:         engine.SummaryFilename(id),
		MIME:             engine.SummaryMIME,
		TranscriptChars:  utf8.RuneCountInString(text),
	}
	if opts.IncludeTranscript {
		out.Transcript = text
	}

	key := engine.CacheKey("summary", id, string(mode), string(target), band.Name,
		strconv.FormatBool(structured), strconv.FormatBool(opts.UseRemote))
	if cached, ok := engine.CacheLoadJSON[engine.SummarizeOutput](ctx, key); ok && cached.Summary != "" {
		cached.Transcript = out.Transcript
		return cached, nil
	}

	var backend string
	var tier engine.SummaryTier
	var failed bool
	switch mode {
	case ModeHybrid:
		r := p.Hybrid.Summarize(ctx, summarize.HybridRequest{
			Text:       text,
			Language:   target,
			MaxLength:  band.MaxLength,
			UseRemote:  opts.UseRemote,
			Structured: &structured,
		})
		out.Summary = r.Text()
		out.ChunkSummaries = r.ChunkSummaries
		out.SelectedParagraphs = r.SelectedParagraphs
		out.ParagraphCount = r.ParagraphCount
		out.SelectedCount = r.SelectedCount
		backend, tier, failed = r.Backend, r.Tier, !r.OK()
	default:
		r := p.Summarizer.SummarizeAs(ctx, summarize.Request{
			Text:      text,
			Language:  target,
			MaxLength: band.MaxLength,
			MinLength: band.MinLength,
		}, structured)
		out.Summary = r.Text()
		backend, tier, failed = r.Backend, r.Tier, !r.OK()
	}

	out.Failed = failed
	if failed {
		out.Method = "failed"
		slog.Warn("summary failed", slog.String("id", id), slog.String("mode", string(mode)), slog.String("reason", out.Summary))
		return out, nil
	}

	out.Method = MethodLabel(mode, backend, tier, p.Device)
	out.SummaryChars = utf8.RuneCountInString(out.Summary)
	out.CompressionPct = CompressionPct(out.TranscriptChars, out.SummaryChars)

	if p.OutputDir != "" {
		path, err := WriteArtifact(p.OutputDir, id, out.Summary)
		if err != nil {
			slog.Warn("summary artifact not written", slog.String("id", id), slog.Any("error", err))
		} else {
			out.SavedTo = path
		}
	}
	p.archive(ctx, mode, out)

	cached := out
	cached.Transcript = ""
	engine.CacheStoreJSON(ctx, key, cached)
	slog.Info("summary done", slog.String("id", id), slog.String("mode", string(mode)),
		slog.String("method", out.Method), slog.Int("chars", out.SummaryChars))
	return out, nil
}

func (p *Pipeline) archive(ctx context.Context, mode Mode, out engine.SummarizeOutput) {
	if p.Archive == nil {
		return
	}
	_, err := p.Archive.Save(ctx, archive.Record{
		VideoID:          out.VideoID,
		Title:            out.Title,
		Mode:             string(mode),
		Method:           out.Method,
		DetectedLanguage: out.DetectedLanguage,
		SummaryLanguage:  out.SummaryLanguage,
		TranscriptSource: out.TranscriptSource,
		Summary:          out.Summary,
		TranscriptChars:  out.TranscriptChars,
		SummaryChars:     out.SummaryChars,
	})
	if err != nil {
		slog.Warn("archive save failed", slog.String("id", out.VideoID), slog.Any("error", err))
	}
}

// ResolveLanguage picks the summary language. auto or empty means the detected
// language. A mismatch keeps the detected language unless honor is set.
func ResolveLanguage(requested string, detected engine.Language, honor bool) engine.Language {
	req, ok := engine.ParseLanguage(requested)
	if !ok || req == detected {
		return detected
	}
	if honor {
		slog.Info("summarizing in requested language", slog.String("requested", string(req)), slog.String("detected", string(detected)))
		return req
	}
	slog.Warn("requested summary language differs from transcript, using detected",
		slog.String("requested", string(req)), slog.String("detected", string(detected)))
	return detected
}

// MethodLabel describes how the summary was produced, e.g. "LLM gpt-4o-mini",
// "Local 8-bit (GPU: RTX 3060)" or "Hybrid · Local CPU".
func MethodLabel(mode Mode, backend string, tier engine.SummaryTier, dev device.Profile) string {
	var label string
	switch {
	case tier == engine.TierRemote:
		label = tier.Label()
		if _, model, ok := strings.Cut(backend, ":"); ok && model != "" {
			label += " " + model
		}
	case tier == engine.TierCPU:
		label = tier.Label()
	case dev.GPUAvailable && dev.GPUName != "":
		label = tier.Label() + " (GPU: " + dev.GPUName + ")"
	default:
		label = tier.Label()
	}
	if mode == ModeHybrid {
		return "Hybrid · " + label
	}
	return label
}

// CompressionPct is the share of the transcript removed by summarizing, as a
// percentage with one decimal. A summary longer than its transcript is negative.
func CompressionPct(transcriptChars, summaryChars int) float64 {
	if transcriptChars <= 0 {
		return 0
	}
	return math.Round((1-float64(summaryChars)/float64(transcriptChars))*1000) / 10
}

// WriteArtifact saves the summary as youtube_summary_{id}.txt in dir.
func WriteArtifact(dir, videoID, summary string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, engine.SummaryFilename(videoID))
	if err := os.WriteFile(path, []byte(summary+"\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
