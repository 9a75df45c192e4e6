package summarize

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

type completeFunc func(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error)

// LLMConfig configures an OpenAI-compatible chat backend, remote or local.
type LLMConfig struct {
	BaseURL      string
	APIKey       string
	FallbackKeys []string
	Model        string
	Temperature  float64
	MaxTokens    int
	RPS          float64 // 0 = unlimited
	HTTPClient   *http.Client
}

// LLMBackend summarizes through an OpenAI-compatible chat completion API.
type LLMBackend struct {
	name        string
	tier        engine.SummaryTier
	model       string
	temperature float64
	maxTokens   int
	limiter     *rate.Limiter
	complete    completeFunc
}

// NewLLMBackend creates the remote LLM backend.
func NewLLMBackend(c LLMConfig) *LLMBackend {
	return newChatBackend("llm", engine.TierRemote, c)
}

func newChatBackend(name string, tier engine.SummaryTier, c LLMConfig) *LLMBackend {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	client := llm.NewClient(c.BaseURL, c.APIKey, c.Model,
		llm.WithFallbackKeys(c.FallbackKeys),
		llm.WithMaxTokens(c.MaxTokens),
		llm.WithTemperature(c.Temperature),
		llm.WithHTTPClient(c.HTTPClient),
	)
	b := &LLMBackend{
		name:        name,
		tier:        tier,
		model:       c.Model,
		temperature: c.Temperature,
		maxTokens:   c.MaxTokens,
		limiter:     newLimiter(c.RPS),
	}
	b.complete = func(ctx context.Context, system, prompt string, temperature float64, maxTokens int) (string, error) {
		return client.Complete(ctx, system, prompt,
			llm.WithChatTemperature(temperature),
			llm.WithChatMaxTokens(maxTokens),
		)
	}
	return b
}

func (b *LLMBackend) Name() string             { return b.name + ":" + b.model }
func (b *LLMBackend) Tier() engine.SummaryTier { return b.tier }
func (b *LLMBackend) Model() string            { return b.model }

// Summarize sends one chunk with the language-specific summary instruction.
func (b *LLMBackend) Summarize(ctx context.Context, req Request) (string, error) {
	if err := wait(ctx, b.limiter); err != nil {
		return "", err
	}
	prompt := engine.SummaryPrompt(req.Language, req.Text, req.MaxLength, req.MinLength)
	out, err := b.complete(ctx, engine.SummarySystemPrompt(), prompt, b.temperature, tokenBudget(req.MaxLength, b.maxTokens))
	if err != nil {
		return "", markTransient(fmt.Errorf("%s: %w", b.name, err))
	}
	return strings.TrimSpace(out), nil
}

// tokenBudget sizes max_tokens from the advisory character budget, never above limit.
func tokenBudget(maxLength, limit int) int {
	if maxLength <= 0 {
		return limit
	}
	t := maxLength*2 + 128
	if limit > 0 && t > limit {
		return limit
	}
	return t
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}
