// Package asr turns downloaded audio into text.
//
// Two recognizers are provided: the local whisper.cpp CLI and an
// OpenAI-compatible /audio/transcriptions endpoint. Chain tries them in order.
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// ErrEmptyTranscript is returned when recognition succeeds but yields no text.
var ErrEmptyTranscript = errors.New("asr: empty transcript")

// Request is one recognition call.
type Request struct {
	Path     string
	Model    string // tiny, base, small, medium, large
	Language string // "" = auto-detect
	Progress engine.ProgressFunc
}

// Recognizer transcribes an audio file.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, req Request) (string, error)
}

// realtimeFactor estimates recognition time as a fraction of audio duration.
var realtimeFactor = map[string]float64{
	"tiny":   0.1,
	"base":   0.15,
	"small":  0.3,
	"medium": 0.6,
	"large":  1.0,
}

// ExpectedDuration estimates how long recognizing audioLen takes with model.
func ExpectedDuration(audioLen time.Duration, model string) time.Duration {
	f, ok := realtimeFactor[model]
	if !ok {
		f = 0.3
	}
	return time.Duration(float64(audioLen) * f)
}

// Chain tries recognizers in order and reports elapsed-time progress while
// the blocking call runs.
type Chain struct {
	recognizers []Recognizer
	interval    time.Duration
}

// NewChain skips nil recognizers.
func NewChain(rs ...Recognizer) *Chain {
	c := &Chain{interval: time.Second}
	for _, r := range rs {
		if r != nil {
			c.recognizers = append(c.recognizers, r)
		}
	}
	return c
}

// Len returns the number of recognizers.
func (c *Chain) Len() int { return len(c.recognizers) }

func (c *Chain) Name() string {
	names := make([]string, len(c.recognizers))
	for i, r := range c.recognizers {
		names[i] = r.Name()
	}
	return strings.Join(names, ",")
}

// Recognize returns the first non-empty transcript.
func (c *Chain) Recognize(ctx context.Context, req Request) (string, error) {
	if len(c.recognizers) == 0 {
		return "", errors.New("asr: no recognizer configured")
	}
	engine.IncrASRRun()

	if req.Progress != nil {
		if d, err := AudioDuration(req.Path); err == nil {
			stop := engine.StartProgress(ctx, ExpectedDuration(d, req.Model), c.interval, req.Progress)
			defer stop()
		}
	}

	var errs []error
	for _, r := range c.recognizers {
		start := time.Now()
		text, err := r.Recognize(ctx, req)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				slog.Info("asr done", slog.String("recognizer", r.Name()), slog.String("model", req.Model),
					slog.Duration("took", time.Since(start)), slog.Int("chars", len(text)))
				return text, nil
			}
			err = ErrEmptyTranscript
		}
		slog.Warn("asr recognizer failed", slog.String("recognizer", r.Name()), slog.Any("error", err))
		errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	engine.IncrASRError()
	return "", errors.Join(errs...)
}
