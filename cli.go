package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
	"github.com/anatolykoptev/go_ytsum/internal/toolutil"
)

// summarizer is the part of *pipeline.Pipeline the CLI drives.
type summarizer interface {
	Run(ctx context.Context, rawURL string, opts pipeline.Options) (engine.SummarizeOutput, error)
}

// runCLI handles `go_ytsum summarize [flags] <url>` and returns the exit code.
func runCLI(ctx context.Context, p summarizer, args []string) int {
	return summarizeCommand(ctx, p, args, os.Stdout, os.Stderr)
}

func summarizeCommand(ctx context.Context, p summarizer, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	hybrid := fs.Bool("hybrid", false, "TF-IDF paragraph selection before summarizing")
	lang := fs.String("lang", "", "summary language: ko, en or auto")
	length := fs.String("length", "", "summary length: short, medium, long or auto")
	noASR := fs.Bool("no-asr", false, "never fall back to audio transcription")
	structured := fs.Bool("structured", false, "key points followed by the full summary")
	remote := fs.Bool("remote", false, "hybrid only: final pass through the remote LLM")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: go_ytsum summarize [flags] <youtube-url>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	input := engine.SummarizeInput{URL: fs.Arg(0), Language: *lang, Length: *length}
	if err := engine.Validate(input); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	opts := pipeline.Options{
		Mode:      pipeline.ModeStandard,
		Language:  input.Language,
		Length:    input.Length,
		UseRemote: *remote,
	}
	if *hybrid {
		opts.Mode = pipeline.ModeHybrid
	}
	if *noASR {
		opts.AllowASR = new(bool)
	}
	if *structured {
		opts.Structured = structured
	}
	if id, err := pipeline.VideoID(input.URL); err == nil {
		opts.Progress = toolutil.LogProgress("cli", id, 10)
	}

	out, err := p.Run(ctx, input.URL, opts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprint(stdout, toolutil.FormatSummary(out))
	if out.Failed {
		return 1
	}
	return 0
}
