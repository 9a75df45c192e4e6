package ytserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/device"
)

// DeviceOutput is the structured output of device_profile.
type DeviceOutput struct {
	GPUAvailable     bool                      `json:"gpu_available"`
	GPUName          string                    `json:"gpu_name,omitempty"`
	VRAMGB           float64                   `json:"vram_gb"`
	Device           string                    `json:"device"`
	ASRModel         string                    `json:"asr_model"`
	ASRModelOverride string                    `json:"asr_model_override,omitempty"`
	SummaryTier      string                    `json:"summary_tier"`
	SummaryTierLabel string                    `json:"summary_tier_label"`
	FFmpeg           string                    `json:"ffmpeg,omitempty"`
	FFmpegAvailable  bool                      `json:"ffmpeg_available"`
	Backends         []string                  `json:"backends"`
	Recognizers      []string                  `json:"recognizers"`
	Requirements     []device.ModelRequirement `json:"asr_requirements"`
}

func registerDeviceProfile(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "device_profile",
		Description: "Report the detected GPU and VRAM, the speech recognition model size and summarization tier chosen for it, ffmpeg availability, the configured backend and recognizer chains, and which Whisper model sizes fit in VRAM.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ engine.DeviceInput) (*mcp.CallToolResult, DeviceOutput, error) {
		return nil, deviceOutput(d), nil
	})
}

func deviceOutput(d Deps) DeviceOutput {
	p := d.Device
	backends := d.Backends
	if backends == nil {
		backends = []string{}
	}
	recognizers := d.Recognizers
	if recognizers == nil {
		recognizers = []string{}
	}
	return DeviceOutput{
		GPUAvailable:     p.GPUAvailable,
		GPUName:          p.GPUName,
		VRAMGB:           p.VRAMGB,
		Device:           p.Device,
		ASRModel:         p.ASRModel,
		ASRModelOverride: engine.Cfg.ASRModelOverride,
		SummaryTier:      p.SummaryTier.String(),
		SummaryTierLabel: p.SummaryTier.Label(),
		FFmpeg:           d.FFmpeg,
		FFmpegAvailable:  d.FFmpeg != "",
		Backends:         backends,
		Recognizers:      recognizers,
		Requirements:     device.Requirements(p),
	}
}
