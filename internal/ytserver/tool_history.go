package ytserver

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// HistoryItem is one archived summary.
type HistoryItem struct {
	ID               string `json:"id"`
	VideoID          string `json:"video_id"`
	Title            string `json:"title,omitempty"`
	Mode             string `json:"mode"`
	Method           string `json:"method"`
	SummaryLanguage  string `json:"summary_language"`
	TranscriptSource string `json:"transcript_source"`
	Summary          string `json:"summary"`
	SummaryChars     int    `json:"summary_chars"`
	CreatedAt        string `json:"created_at"`
}

// HistoryOutput is the structured output of summary_history.
type HistoryOutput struct {
	Records []HistoryItem `json:"records"`
	Total   int           `json:"total"`
}

func registerHistory(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "summary_history",
		Description: "List previously produced summaries, newest first. Optionally filter by video_id. Default limit 20, max 100.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
		if err := engine.Validate(input); err != nil {
			return nil, HistoryOutput{}, err
		}
		recs, err := d.Archive.List(ctx, input.VideoID, input.Limit)
		if err != nil {
			return nil, HistoryOutput{}, err
		}
		return nil, historyOutput(recs), nil
	})
}

func historyOutput(recs []archive.Record) HistoryOutput {
	out := HistoryOutput{Records: make([]HistoryItem, 0, len(recs)), Total: len(recs)}
	for _, r := range recs {
		out.Records = append(out.Records, HistoryItem{
			ID:               r.ID.String(),
			VideoID:          r.VideoID,
			Title:            r.Title,
			Mode:             r.Mode,
			Method:           r.Method,
			SummaryLanguage:  r.SummaryLanguage,
			TranscriptSource: r.TranscriptSource,
			Summary:          r.Summary,
			SummaryChars:     r.SummaryChars,
			CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
