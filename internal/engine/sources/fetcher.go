package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/asr"
)

// ErrTranscriptUnavailable is the one programmatic outcome of a failed fetch.
// The attached reason is for display only.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

// UnavailableError carries a human-readable reason for a failed fetch.
type UnavailableError struct {
	VideoID string
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("transcript unavailable for %s: %s", e.VideoID, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return ErrTranscriptUnavailable }

// CaptionSource returns caption transcripts. *Client implements it.
type CaptionSource interface {
	FetchCaptions(ctx context.Context, videoID string, langs []string) (engine.Transcript, error)
}

// AudioSource downloads a video's audio. *AudioDownloader implements it.
type AudioSource interface {
	Download(ctx context.Context, videoID string) (path, dir string, err error)
}

// FetchOptions controls one Fetch call.
type FetchOptions struct {
	Languages   []string // caption preference, default DefaultCaptionLanguages
	AllowASR    bool
	ASRLanguage string // "" = let the recognizer detect
	Progress    engine.ProgressFunc
}

// Fetcher tries captions first and falls back to audio + speech recognition.
type Fetcher struct {
	Captions   CaptionSource
	Audio      AudioSource
	Recognizer asr.Recognizer
	ASRModel   func(ctx context.Context) string // model size, "" = base
}

// Fetch returns the transcript of videoID or an *UnavailableError.
func (f *Fetcher) Fetch(ctx context.Context, videoID string, opts FetchOptions) (engine.Transcript, error) {
	engine.IncrTranscriptRequests()
	partial := engine.Transcript{VideoID: videoID}
	var reasons []string

	if f.Captions != nil {
		t, err := f.Captions.FetchCaptions(ctx, videoID, opts.Languages)
		partial.Title = t.Title
		if err == nil && len(t.Segments) > 0 {
			engine.IncrCaptionHit()
			t.VideoID = videoID
			return t, nil
		}
		engine.IncrCaptionMiss()
		switch {
		case err == nil, errors.Is(err, ErrNoCaptions):
			reasons = append(reasons, "no captions")
		default:
			slog.Warn("youtube: caption fetch failed", slog.String("id", videoID), slog.Any("error", err))
			reasons = append(reasons, "caption service error: "+reasonOf(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return partial, &UnavailableError{VideoID: videoID, Reason: err.Error()}
	}
	if !opts.AllowASR {
		reasons = append(reasons, "audio transcription disabled")
		return partial, &UnavailableError{VideoID: videoID, Reason: strings.Join(reasons, "; ")}
	}
	if f.Audio == nil || f.Recognizer == nil {
		reasons = append(reasons, "audio transcription not configured")
		return partial, &UnavailableError{VideoID: videoID, Reason: strings.Join(reasons, "; ")}
	}

	text, err := f.transcribe(ctx, videoID, opts)
	if err != nil {
		slog.Warn("youtube: audio transcription failed", slog.String("id", videoID), slog.Any("error", err))
		reasons = append(reasons, reasonOf(err))
		return partial, &UnavailableError{VideoID: videoID, Reason: strings.Join(reasons, "; ")}
	}

	return engine.Transcript{
		VideoID:  videoID,
		Title:    partial.Title,
		Language: opts.ASRLanguage,
		Source:   engine.SourceASR,
		Segments: []engine.Segment{{Text: text}},
	}, nil
}

func (f *Fetcher) transcribe(ctx context.Context, videoID string, opts FetchOptions) (string, error) {
	path, dir, err := f.Audio.Download(ctx, videoID)
	defer removeScratch(path, dir)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}

	model := ""
	if f.ASRModel != nil {
		model = f.ASRModel(ctx)
	}
	if model == "" {
		model = "base"
	}
	text, err := f.Recognizer.Recognize(ctx, asr.Request{
		Path:     path,
		Model:    model,
		Language: opts.ASRLanguage,
		Progress: opts.Progress,
	})
	if err != nil {
		return "", fmt.Errorf("speech recognition: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", asr.ErrEmptyTranscript
	}
	return text, nil
}

// removeScratch deletes the downloaded file and its directory. Errors are ignored.
func removeScratch(path, dir string) {
	if path != "" {
		_ = os.Remove(path)
	}
	if dir != "" {
		_ = os.RemoveAll(dir)
	}
}

// reasonOf keeps the first line of err, capped for display.
func reasonOf(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return engine.TruncateRunes(msg, 200, "...")
}
