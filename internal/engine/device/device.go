// Package device sizes the local accelerator and maps it to model tiers.
//
// The VRAM table is advisory: it picks faster or smaller models and never
// changes what a summary says.
package device

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// Device kinds.
const (
	DeviceCPU = "cpu"
	DeviceGPU = "gpu"
)

// minPlausibleVRAM is the size below which a memory query is treated as an under-report.
const minPlausibleVRAM = 2.0

// Profile is the detected hardware and the model tiers it supports.
type Profile struct {
	GPUAvailable bool               `json:"gpu_available"`
	GPUName      string             `json:"gpu_name,omitempty"`
	VRAMGB       float64            `json:"vram_gb"`
	Device       string             `json:"device"`
	ASRModel     string             `json:"asr_model"`
	SummaryTier  engine.SummaryTier `json:"summary_tier"`
}

// tierRow is one row of the VRAM threshold table.
type tierRow struct {
	minGB float64
	asr   string
	tier  engine.SummaryTier
}

// tierTable is ordered by descending threshold.
var tierTable = []tierRow{
	{12, "large", engine.TierFull},
	{10, "large", engine.TierFull},
	{8, "medium", engine.Tier8Bit},
	{7, "medium", engine.Tier8Bit},
	{6, "small", engine.Tier8Bit},
	{4, "base", engine.Tier8Bit},
	{2, "base", engine.Tier4Bit},
	{0, "tiny", engine.TierCPU},
}

// TierFor maps VRAM in GB to an ASR model size and a summarization tier.
func TierFor(vramGB float64) (asrModel string, tier engine.SummaryTier) {
	for _, row := range tierTable {
		if vramGB >= row.minGB {
			return row.asr, row.tier
		}
	}
	last := tierTable[len(tierTable)-1]
	return last.asr, last.tier
}

// CPUProfile is the profile used when no GPU is found.
func CPUProfile() Profile {
	return Profile{Device: DeviceCPU, ASRModel: "base", SummaryTier: engine.TierCPU}
}

// knownVRAM sizes chipsets whose drivers under-report memory.
// Checked in order; the first substring match wins.
var knownVRAM = []struct {
	match string
	gb    float64
}{
	{"1650", 4},
	{"3080", 10},
	{"4070", 10},
	{"3060", 8},
	{"2060", 6},
	{"1660", 6},
	{"1060", 6},
}

// overrideVRAM returns the table size for name, or 0.
func overrideVRAM(name string) float64 {
	for _, k := range knownVRAM {
		if strings.Contains(name, k.match) {
			return k.gb
		}
	}
	return 0
}

// Profiler queries nvidia-smi.
type Profiler struct {
	Bin string
	Run engine.CommandRunner
}

// NewProfiler runs the nvidia-smi found on PATH.
func NewProfiler() *Profiler {
	return &Profiler{Bin: "nvidia-smi", Run: engine.ExecRunner}
}

// Detect never fails: any query error yields CPUProfile.
func (p *Profiler) Detect(ctx context.Context) Profile {
	out, err := p.Run(ctx, p.Bin, "--query-gpu=name,memory.total", "--format=csv,noheader,nounits")
	if err != nil {
		slog.Info("no GPU detected, using CPU tiers", slog.Any("error", err))
		return CPUProfile()
	}
	name, vram, ok := parseQueryGPU(string(out))
	if !ok {
		slog.Info("nvidia-smi reported no devices, using CPU tiers")
		return CPUProfile()
	}

	if vram < minPlausibleVRAM {
		if report, err := p.Run(ctx, p.Bin, "-q", "-d", "MEMORY"); err == nil {
			if v := parseMemoryReport(string(report)); v > vram {
				vram = v
			}
		}
	}
	if vram < minPlausibleVRAM {
		if v := overrideVRAM(name); v > 0 {
			slog.Debug("vram override", slog.String("gpu", name), slog.Float64("gb", v))
			vram = v
		}
	}

	asrModel, tier := TierFor(vram)
	return Profile{
		GPUAvailable: true,
		GPUName:      name,
		VRAMGB:       vram,
		Device:       DeviceGPU,
		ASRModel:     asrModel,
		SummaryTier:  tier,
	}
}

// parseQueryGPU reads the first "name, MiB" line.
func parseQueryGPU(out string) (name string, vramGB float64, ok bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		i := strings.LastIndexByte(line, ',')
		if i < 0 {
			return line, 0, true
		}
		name = strings.TrimSpace(line[:i])
		mib, err := strconv.ParseFloat(strings.TrimSpace(line[i+1:]), 64)
		if err != nil {
			return name, 0, true
		}
		return name, mib / 1024, true
	}
	return "", 0, false
}

var fbTotalRe = regexp.MustCompile(`(?s)FB Memory Usage.*?Total\s*:\s*(\d+)\s*MiB`)

// parseMemoryReport reads the framebuffer total from `nvidia-smi -q -d MEMORY`.
func parseMemoryReport(out string) float64 {
	m := fbTotalRe.FindStringSubmatch(out)
	if len(m) < 2 {
		return 0
	}
	mib, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return mib / 1024
}
