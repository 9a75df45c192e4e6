package ytserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
	"github.com/anatolykoptev/go_ytsum/internal/toolutil"
)

func registerSummarize(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_summarize",
		Description: "Summarize a YouTube video. Uses the video's Korean or English captions, or downloads the audio and runs speech recognition when captions are missing (allow_asr). Long transcripts are chunked on sentence boundaries and reduced map-reduce style through the configured LLM/local backends. Returns the summary, detected and summary language, method and compression stats. The summary is also saved as youtube_summary_{video_id}.txt.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummarizeInput) (*mcp.CallToolResult, engine.SummarizeOutput, error) {
		out, err := handleSummarize(ctx, d, "youtube_summarize", input, pipeline.ModeStandard)
		return nil, out, err
	})
}

func registerHybridSummarize(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_hybrid_summarize",
		Description: "Extractive-then-abstractive summary of a YouTube video: the transcript is regrouped into ~200 character paragraphs, ranked by TF-IDF similarity to the document centroid, the top 5 are summarized individually and then merged into a meta summary. Set use_remote for a final pass through the remote LLM. Returns the selected paragraphs with similarity scores and the per-paragraph summaries.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.SummarizeInput) (*mcp.CallToolResult, engine.SummarizeOutput, error) {
		out, err := handleSummarize(ctx, d, "youtube_hybrid_summarize", input, pipeline.ModeHybrid)
		return nil, out, err
	})
}

func handleSummarize(ctx context.Context, d Deps, tool string, input engine.SummarizeInput, mode pipeline.Mode) (engine.SummarizeOutput, error) {
	if err := engine.Validate(input); err != nil {
		return engine.SummarizeOutput{}, err
	}
	id, err := pipeline.VideoID(input.URL)
	if err != nil {
		return engine.SummarizeOutput{}, err
	}

	out, err := d.Pipeline.Run(ctx, input.URL, pipeline.Options{
		Mode:              mode,
		Language:          input.Language,
		Length:            input.Length,
		AllowASR:          input.AllowASR,
		Structured:        input.Structured,
		IncludeTranscript: input.IncludeTranscript,
		UseRemote:         input.UseRemote,
		Progress:          toolutil.LogProgress(tool, id, 10),
	})
	if err != nil {
		return engine.SummarizeOutput{}, fmt.Errorf("%s: %w", tool, err)
	}
	return out, nil
}
