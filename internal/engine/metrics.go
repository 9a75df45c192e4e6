package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	SummarizeRequests  atomic.Int64
	TranscriptRequests atomic.Int64
	CaptionHits        atomic.Int64
	CaptionMisses      atomic.Int64
	ASRRuns            atomic.Int64
	ASRErrors          atomic.Int64
	BackendCalls       atomic.Int64
	BackendErrors      atomic.Int64
	BackendFallbacks   atomic.Int64
	SummaryFailures    atomic.Int64
	HybridRequests     atomic.Int64
	ArchiveWrites      atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"summarize_requests":  metrics.SummarizeRequests.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"caption_hits":        metrics.CaptionHits.Load(),
		"caption_misses":      metrics.CaptionMisses.Load(),
		"asr_runs":            metrics.ASRRuns.Load(),
		"asr_errors":          metrics.ASRErrors.Load(),
		"backend_calls":       metrics.BackendCalls.Load(),
		"backend_errors":      metrics.BackendErrors.Load(),
		"backend_fallbacks":   metrics.BackendFallbacks.Load(),
		"summary_failures":    metrics.SummaryFailures.Load(),
		"hybrid_requests":     metrics.HybridRequests.Load(),
		"archive_writes":      metrics.ArchiveWrites.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"summarize_requests", "transcript_requests",
		"caption_hits", "caption_misses",
		"asr_runs", "asr_errors",
		"backend_calls", "backend_errors", "backend_fallbacks",
		"summary_failures", "hybrid_requests",
		"archive_writes",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for sub-packages.
func IncrSummarizeRequests()  { metrics.SummarizeRequests.Add(1) }
func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrCaptionHit()         { metrics.CaptionHits.Add(1) }
func IncrCaptionMiss()        { metrics.CaptionMisses.Add(1) }
func IncrASRRun()             { metrics.ASRRuns.Add(1) }
func IncrASRError()           { metrics.ASRErrors.Add(1) }
func IncrBackendCall()        { metrics.BackendCalls.Add(1) }
func IncrBackendError()       { metrics.BackendErrors.Add(1) }
func IncrBackendFallback()    { metrics.BackendFallbacks.Add(1) }
func IncrSummaryFailure()     { metrics.SummaryFailures.Add(1) }
func IncrHybridRequests()     { metrics.HybridRequests.Add(1) }
func IncrArchiveWrites()      { metrics.ArchiveWrites.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
