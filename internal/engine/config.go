package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	SummaryLanguage        string // ko, en or auto
	SummaryLength          string // short, medium, long or auto
	HonorRequestedLanguage bool   // false = summarize in the detected transcript language
	Structured             bool   // render key points + full summary headings
	AllowASR               bool   // permit audio download + speech recognition fallback

	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRPS             float64 // remote calls per second, 0 = unlimited

	GeminiAPIKey string
	GeminiModel  string

	LocalLLMBase   string // OpenAI-compatible local inference server, empty = disabled
	LocalModelFull string
	LocalModel8Bit string
	LocalModel4Bit string
	LocalModelCPU  string

	BackendTimeout time.Duration

	YtDlpPath        string
	FFmpegPath       string
	WhisperCLI       string
	WhisperModelDir  string
	WhisperAPIKey    string
	WhisperAPIBase   string
	WhisperAPIModel  string
	ASRModelOverride string
	ScratchDir       string
	OutputDir        string

	FetchTimeout         time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = watch page fetched with HTTPClient
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, asr, summarize).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = 120 * time.Second
	}
	cfg = c
	Cfg = &cfg
}
