package summarize

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// LocalBackend is a chat backend served by a local OpenAI-compatible
// inference server (llama.cpp, vLLM, Ollama) holding one model tier.
type LocalBackend struct {
	*LLMBackend
	baseURL    string
	httpClient *http.Client
}

// NewLocalBackend creates the backend for one local tier. c.APIKey may be empty.
func NewLocalBackend(tier engine.SummaryTier, c LLMConfig) *LocalBackend {
	if c.HTTPClient == nil {
		c.HTTPClient = engine.Cfg.HTTPClient
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return &LocalBackend{
		LLMBackend: newChatBackend("local-"+tier.String(), tier, c),
		baseURL:    strings.TrimRight(c.BaseURL, "/"),
		httpClient: c.HTTPClient,
	}
}

// Load probes the server's model list. A backend that fails here is
// dropped from the chain.
func (b *LocalBackend) Load(ctx context.Context) error {
	if b.baseURL == "" || b.model == "" {
		return fmt.Errorf("%s: not configured", b.name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: models endpoint status %d", b.name, resp.StatusCode)
	}
	return nil
}
