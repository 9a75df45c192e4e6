package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// WhisperCLI runs the whisper.cpp command line tool.
type WhisperCLI struct {
	Bin      string // whisper-cli path
	ModelDir string // holds ggml-<model>.bin
	Threads  int
	Run      engine.CommandRunner
}

// NewWhisperCLI runs bin with the models in modelDir on every CPU.
func NewWhisperCLI(bin, modelDir string) *WhisperCLI {
	return &WhisperCLI{Bin: bin, ModelDir: modelDir, Threads: runtime.NumCPU(), Run: engine.ExecRunner}
}

func (w *WhisperCLI) Name() string { return "whisper-cli" }

// ModelPath returns the ggml model file for a model size.
func (w *WhisperCLI) ModelPath(model string) string {
	if model == "large" {
		model = "large-v3"
	}
	return filepath.Join(w.ModelDir, "ggml-"+model+".bin")
}

// timestampRe strips "[00:00:00.000 --> 00:00:02.000]" prefixes if the CLI prints them.
var timestampRe = regexp.MustCompile(`(?m)^\s*\[[0-9:.]+\s*-->\s*[0-9:.]+\]\s*`)

func (w *WhisperCLI) Recognize(ctx context.Context, req Request) (string, error) {
	modelPath := w.ModelPath(req.Model)
	if _, err := os.Stat(modelPath); err != nil {
		return "", fmt.Errorf("model %s: %w", req.Model, err)
	}
	threads := w.Threads
	if threads <= 0 {
		threads = 1
	}
	lang := req.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"--model", modelPath,
		"--threads", strconv.Itoa(threads),
		"--language", lang,
		"--no-timestamps",
		"--file", req.Path,
	}
	out, err := w.Run(ctx, w.Bin, args...)
	if err != nil {
		return "", err
	}
	text := timestampRe.ReplaceAllString(string(out), "")
	return engine.CollapseSpaces(strings.ReplaceAll(text, "\n", " ")), nil
}
