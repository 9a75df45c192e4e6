package ytserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
	"github.com/anatolykoptev/go_ytsum/internal/toolutil"
)

func registerTranscript(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the transcript of a YouTube video without summarizing it. Prefers Korean then English captions (manual before auto-generated); falls back to audio download + speech recognition when allow_asr is set. Set segments=true for timed caption lines.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, engine.TranscriptOutput, error) {
		if err := engine.Validate(input); err != nil {
			return nil, engine.TranscriptOutput{}, err
		}
		id, err := pipeline.VideoID(input.URL)
		if err != nil {
			return nil, engine.TranscriptOutput{}, err
		}

		t, err := d.Pipeline.Transcript(ctx, input.URL, input.AllowASR, toolutil.LogProgress("youtube_transcript", id, 10))
		if err != nil {
			return nil, engine.TranscriptOutput{}, fmt.Errorf("youtube_transcript: %w", err)
		}
		return nil, transcriptOutput(t, input.Segments), nil
	})
}

func transcriptOutput(t engine.Transcript, withSegments bool) engine.TranscriptOutput {
	text := t.Text()
	out := engine.TranscriptOutput{
		VideoID:          t.VideoID,
		Title:            t.Title,
		Source:           t.Source,
		Language:         t.Language,
		DetectedLanguage: string(engine.DetectLanguage(text)),
		Text:             text,
	}
	if withSegments {
		out.Segments = t.Segments
	}
	return out
}
