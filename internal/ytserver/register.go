// Package ytserver exposes the summarization pipeline as MCP tools.
package ytserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine/device"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
)

// Deps are the services the tools run against.
type Deps struct {
	Pipeline    *pipeline.Pipeline
	Device      device.Profile
	FFmpeg      string   // resolved ffmpeg path, "" = not found
	Backends    []string // summarization chain, in fallback order
	Recognizers []string // ASR chain, in fallback order
	Archive     archive.Store
}

// RegisterTools registers youtube_summarize, youtube_hybrid_summarize,
// youtube_transcript, device_profile and, when an archive is configured,
// summary_history.
func RegisterTools(server *mcp.Server, d Deps) {
	registerSummarize(server, d)
	registerHybridSummarize(server, d)
	registerTranscript(server, d)
	registerDeviceProfile(server, d)
	if d.Archive != nil {
		registerHistory(server, d)
	}
}
