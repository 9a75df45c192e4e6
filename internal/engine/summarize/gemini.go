package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

const defaultGeminiModel = "gemini-2.5-flash"

type generateFunc func(ctx context.Context, system, prompt string, temperature float32, maxTokens int32) (string, error)

// GeminiBackend summarizes through the Gemini API.
type GeminiBackend struct {
	model     string
	maxTokens int32
	limiter   *rate.Limiter
	generate  generateFunc
}

// NewGeminiBackend creates a Gemini client for apiKey.
func NewGeminiBackend(ctx context.Context, apiKey, model string, rps float64) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is empty")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	b := &GeminiBackend{model: model, maxTokens: 2048, limiter: newLimiter(rps)}
	b.generate = func(ctx context.Context, system, prompt string, temperature float32, maxTokens int32) (string, error) {
		contents := []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: prompt}},
			},
		}
		config := &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
			Temperature:       genai.Ptr(temperature),
			MaxOutputTokens:   maxTokens,
		}
		result, err := client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return "", err
		}
		return result.Text(), nil
	}
	return b, nil
}

func (b *GeminiBackend) Name() string             { return "gemini:" + b.model }
func (b *GeminiBackend) Tier() engine.SummaryTier { return engine.TierRemote }
func (b *GeminiBackend) Model() string            { return b.model }

func (b *GeminiBackend) Summarize(ctx context.Context, req Request) (string, error) {
	if err := wait(ctx, b.limiter); err != nil {
		return "", err
	}
	prompt := engine.SummaryPrompt(req.Language, req.Text, req.MaxLength, req.MinLength)
	out, err := b.generate(ctx, engine.SummarySystemPrompt(), prompt, 0.3,
		int32(tokenBudget(req.MaxLength, int(b.maxTokens))))
	if err != nil {
		return "", markTransient(fmt.Errorf("gemini: %w", err))
	}
	return strings.TrimSpace(out), nil
}
