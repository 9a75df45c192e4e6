package asr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_ytsum/internal/engine"
)

// maxUploadBytes is the hosted transcription API's file size limit.
const maxUploadBytes = 25 << 20

// WhisperAPI posts audio to an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperAPI struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
	Retry   engine.RetryConfig
}

// NewWhisperAPI defaults to OpenAI's whisper-1.
func NewWhisperAPI(baseURL, apiKey, model string) *WhisperAPI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperAPI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
		Retry:   engine.DefaultRetryConfig,
	}
}

func (w *WhisperAPI) Name() string { return "whisper-api" }

// Recognize ignores req.Model: the hosted model is fixed by configuration.
func (w *WhisperAPI) Recognize(ctx context.Context, req Request) (string, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		return "", err
	}
	if info.Size() > maxUploadBytes {
		return "", fmt.Errorf("audio is %d bytes, over the %d byte upload limit", info.Size(), maxUploadBytes)
	}
	audio, err := os.ReadFile(req.Path)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(req.Path))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	_ = mw.WriteField("model", w.Model)
	_ = mw.WriteField("response_format", "text")
	if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	payload := body.Bytes()

	resp, err := engine.RetryHTTP(ctx, w.Retry, func() (*http.Response, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+"/audio/transcriptions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", mw.FormDataContentType())
		r.Header.Set("Authorization", "Bearer "+w.APIKey)
		return w.HTTP.Do(r)
	})
	if err != nil {
		return "", fmt.Errorf("transcriptions: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcriptions: HTTP %d: %s", resp.StatusCode, engine.TruncateRunes(string(data), 200, "..."))
	}
	return strings.TrimSpace(string(data)), nil
}
