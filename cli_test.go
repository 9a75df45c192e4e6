package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
)

type fakeRunner struct {
	out  engine.SummarizeOutput
	err  error
	url  string
	opts pipeline.Options
}

func (f *fakeRunner) Run(_ context.Context, rawURL string, opts pipeline.Options) (engine.SummarizeOutput, error) {
	f.url, f.opts = rawURL, opts
	return f.out, f.err
}

func TestSummarizeCommand(t *testing.T) {
	engine.Init(engine.Config{})
	r := &fakeRunner{out: engine.SummarizeOutput{
		VideoID: "dQw4w9WgXcQ", Title: "Demo", Method: "LLM gpt-4o-mini",
		SummaryLanguage: "en", Summary: "A short summary.",
	}}
	var stdout, stderr bytes.Buffer

	code := summarizeCommand(context.Background(), r,
		[]string{"-hybrid", "-no-asr", "-lang", "ko", "https://youtu.be/dQw4w9WgXcQ"}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", r.url)
	assert.Equal(t, pipeline.ModeHybrid, r.opts.Mode)
	assert.Equal(t, "ko", r.opts.Language)
	require.NotNil(t, r.opts.AllowASR)
	assert.False(t, *r.opts.AllowASR)
	assert.Nil(t, r.opts.Structured)
	assert.Contains(t, stdout.String(), "A short summary.")
}

func TestSummarizeCommandErrors(t *testing.T) {
	engine.Init(engine.Config{})
	tests := []struct {
		name string
		args []string
		r    *fakeRunner
		want int
	}{
		{"no url", nil, &fakeRunner{}, 2},
		{"bad language", []string{"-lang", "fr", "https://youtu.be/dQw4w9WgXcQ"}, &fakeRunner{}, 2},
		{"pipeline error", []string{"https://youtu.be/dQw4w9WgXcQ"}, &fakeRunner{err: errors.New("transcript unavailable")}, 1},
		{"summary failed", []string{"https://youtu.be/dQw4w9WgXcQ"}, &fakeRunner{out: engine.SummarizeOutput{Failed: true}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, summarizeCommand(context.Background(), tt.r, tt.args, &stdout, &stderr))
		})
	}
}
