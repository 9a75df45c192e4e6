// go_ytsum: YouTube transcript and summarization MCP server.
//
// Exposes youtube_summarize, youtube_hybrid_summarize, youtube_transcript,
// device_profile and summary_history. Runs as HTTP MCP server or stdio
// transport; `go_ytsum summarize <url>` runs one summary from the shell.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_ytsum/internal/archive"
	"github.com/anatolykoptev/go_ytsum/internal/engine"
	"github.com/anatolykoptev/go_ytsum/internal/engine/asr"
	"github.com/anatolykoptev/go_ytsum/internal/engine/device"
	"github.com/anatolykoptev/go_ytsum/internal/engine/sources"
	"github.com/anatolykoptev/go_ytsum/internal/engine/summarize"
	"github.com/anatolykoptev/go_ytsum/internal/pipeline"
	"github.com/anatolykoptev/go_ytsum/internal/ytserver"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", slog.Any("error", err))
	}

	ctx := context.Background()
	initEngine()
	svc := initServices(ctx)

	if len(os.Args) > 1 && os.Args[1] == "summarize" {
		code := runCLI(ctx, svc.deps.Pipeline, os.Args[2:])
		svc.Close()
		os.Exit(code)
	}
	defer svc.Close()

	port := env.Str("MCP_PORT", "8892")
	slog.Info("starting go_ytsum",
		slog.String("port", port),
		slog.String("device", svc.deps.Device.Device),
		slog.String("summary_tier", svc.deps.Device.SummaryTier.String()),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_ytsum",
		Version: version,
	}, nil)

	ytserver.RegisterTools(server, svc.deps)

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_ytsum",
		Version:      version,
		Port:         port,
		WriteTimeout: 900 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		SummaryLanguage:        env.Str("SUMMARY_LANGUAGE", "auto"),
		SummaryLength:          env.Str("SUMMARY_LENGTH", "auto"),
		HonorRequestedLanguage: envBool("HONOR_REQUESTED_LANGUAGE", false),
		Structured:             envBool("STRUCTURED_SUMMARY", false),
		AllowASR:               envBool("ALLOW_ASR", true),

		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://api.openai.com/v1"),
		LLMModel:           env.Str("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 2048),
		LLMRPS:             env.Float("LLM_RPS", 2),

		GeminiAPIKey: env.Str("GEMINI_API_KEY", ""),
		GeminiModel:  env.Str("GEMINI_MODEL", "gemini-2.5-flash"),

		LocalLLMBase:   env.Str("LOCAL_LLM_BASE", ""),
		LocalModelFull: env.Str("LOCAL_MODEL_FULL", "qwen2.5-7b-instruct"),
		LocalModel8Bit: env.Str("LOCAL_MODEL_8BIT", "qwen2.5-7b-instruct-q8_0"),
		LocalModel4Bit: env.Str("LOCAL_MODEL_4BIT", "qwen2.5-3b-instruct-q4_k_m"),
		LocalModelCPU:  env.Str("LOCAL_MODEL_CPU", "qwen2.5-0.5b-instruct-q4_k_m"),

		BackendTimeout: env.Duration("BACKEND_TIMEOUT", 120*time.Second),

		YtDlpPath:        env.Str("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:       env.Str("FFMPEG_PATH", ""),
		WhisperCLI:       env.Str("WHISPER_CLI", ""),
		WhisperModelDir:  env.Str("WHISPER_MODEL_DIR", "models"),
		WhisperAPIKey:    env.Str("WHISPER_API_KEY", ""),
		WhisperAPIBase:   env.Str("WHISPER_API_BASE", ""),
		WhisperAPIModel:  env.Str("WHISPER_API_MODEL", ""),
		ASRModelOverride: env.Str("ASR_MODEL", ""),
		ScratchDir:       env.Str("SCRATCH_DIR", ""),
		OutputDir:        env.Str("OUTPUT_DIR", ""),

		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 15*time.Second),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 500),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	}
	c.HTTPClient = &http.Client{
		Timeout: c.FetchTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Warn("stealth client init failed, watch page via plain HTTP", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 6*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// envBool reads a boolean knob; unparsable values keep def.
func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env.Str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

// services owns everything main has to close on exit.
type services struct {
	deps  ytserver.Deps
	chain *summarize.Chain
}

func (s *services) Close() {
	if s.deps.Archive != nil {
		if err := s.deps.Archive.Close(); err != nil {
			slog.Warn("archive close failed", slog.Any("error", err))
		}
	}
	if err := s.chain.Close(); err != nil {
		slog.Warn("backend close failed", slog.Any("error", err))
	}
	engine.CloseCache()
}

func initServices(ctx context.Context) *services {
	c := engine.Cfg

	profile := device.NewProfiler().Detect(ctx)
	slog.Info("device profile",
		slog.String("device", profile.Device),
		slog.String("gpu", profile.GPUName),
		slog.Float64("vram_gb", profile.VRAMGB),
		slog.String("asr_model", profile.ASRModel),
		slog.String("summary_tier", profile.SummaryTier.String()),
	)

	chain := summarize.NewChain(ctx, c.BackendTimeout, summaryBackends(ctx, profile)...)
	if chain.Len() == 0 {
		slog.Warn("no summary backend available, summaries will report failure")
	}
	backendNames := make([]string, 0, chain.Len())
	for _, b := range chain.Backends() {
		backendNames = append(backendNames, b.Name())
	}

	summarizer := summarize.New(chain, summarize.WithStructured(c.Structured))
	var hybridOpts []summarize.HybridOption
	if remote := chain.Remote(); remote != nil {
		hybridOpts = append(hybridOpts, summarize.WithRemote(remote))
	}

	ffmpeg := device.FindFFmpeg(c.FFmpegPath)
	if ffmpeg == "" {
		slog.Warn("ffmpeg not found, downloaded audio kept in its original container")
	}

	var recognizers []asr.Recognizer
	if c.WhisperCLI != "" {
		recognizers = append(recognizers, asr.NewWhisperCLI(c.WhisperCLI, c.WhisperModelDir))
	}
	if c.WhisperAPIKey != "" {
		recognizers = append(recognizers, asr.NewWhisperAPI(c.WhisperAPIBase, c.WhisperAPIKey, c.WhisperAPIModel))
	}
	recognizerNames := make([]string, 0, len(recognizers))
	for _, r := range recognizers {
		recognizerNames = append(recognizerNames, r.Name())
	}

	fetcher := &sources.Fetcher{
		Captions: sources.NewClient(),
		Audio:    sources.NewAudioDownloader(ffmpeg),
		ASRModel: func(context.Context) string {
			if c.ASRModelOverride != "" {
				return c.ASRModelOverride
			}
			return profile.ASRModel
		},
	}
	if len(recognizers) > 0 {
		fetcher.Recognizer = asr.NewChain(recognizers...)
	}

	var store archive.Store
	if dsn := env.Str("ARCHIVE_DSN", ""); dsn != "" {
		s, err := archive.Open(ctx, dsn)
		if err != nil {
			slog.Warn("summary archive init failed, history disabled", slog.Any("error", err))
		} else {
			store = s
			slog.Info("summary archive initialized")
		}
	}

	p := &pipeline.Pipeline{
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Hybrid:     summarize.NewHybrid(summarizer, hybridOpts...),
		Device:     profile,
		Archive:    store,
		OutputDir:  c.OutputDir,
	}

	return &services{
		chain: chain,
		deps: ytserver.Deps{
			Pipeline:    p,
			Device:      profile,
			FFmpeg:      ffmpeg,
			Backends:    backendNames,
			Recognizers: recognizerNames,
			Archive:     store,
		},
	}
}

// summaryBackends builds the fallback order: remote LLM, Gemini, the local
// model for the device tier, then the local CPU model.
func summaryBackends(ctx context.Context, profile device.Profile) []summarize.Backend {
	c := engine.Cfg
	var backends []summarize.Backend

	if c.LLMAPIKey != "" {
		backends = append(backends, summarize.NewLLMBackend(summarize.LLMConfig{
			BaseURL:      c.LLMAPIBase,
			APIKey:       c.LLMAPIKey,
			FallbackKeys: c.LLMAPIKeyFallbacks,
			Model:        c.LLMModel,
			Temperature:  c.LLMTemperature,
			MaxTokens:    c.LLMMaxTokens,
			RPS:          c.LLMRPS,
		}))
	}

	if c.GeminiAPIKey != "" {
		g, err := summarize.NewGeminiBackend(ctx, c.GeminiAPIKey, c.GeminiModel, c.LLMRPS)
		if err != nil {
			slog.Warn("gemini backend init failed", slog.Any("error", err))
		} else {
			backends = append(backends, g)
		}
	}

	if c.LocalLLMBase != "" {
		local := func(tier engine.SummaryTier, model string) summarize.Backend {
			return summarize.NewLocalBackend(tier, summarize.LLMConfig{
				BaseURL:   c.LocalLLMBase,
				Model:     model,
				MaxTokens: c.LLMMaxTokens,
			})
		}
		switch profile.SummaryTier {
		case engine.TierFull:
			backends = append(backends, local(engine.TierFull, c.LocalModelFull))
		case engine.Tier8Bit:
			backends = append(backends, local(engine.Tier8Bit, c.LocalModel8Bit))
		case engine.Tier4Bit:
			backends = append(backends, local(engine.Tier4Bit, c.LocalModel4Bit))
		}
		backends = append(backends, local(engine.TierCPU, c.LocalModelCPU))
	}
	return backends
}
