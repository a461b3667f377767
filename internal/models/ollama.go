package models

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/anuris-ai/anuris/internal/config"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaTimeout = 300 * time.Second
)

// NewOllama creates a ChatModel backed by a local or remote Ollama server.
func NewOllama(ctx context.Context, cfg config.Provider) (model.ToolCallingChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultOllamaTimeout
	}

	modelConfig := &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
		Options: ollamaOptions(cfg),
		// Ollama behind a reverse proxy answers plain text on failure;
		// surface that as a structured error instead of a JSON decode
		// failure.
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &jsonOnlyTransport{inner: http.DefaultTransport, provider: "ollama"},
		},
	}

	return einoollama.NewChatModel(ctx, modelConfig)
}

func ollamaOptions(cfg config.Provider) *einoollama.Options {
	opts := &einoollama.Options{}
	if cfg.MaxTokens > 0 {
		opts.NumPredict = cfg.MaxTokens
	}
	if v, ok := floatOption(cfg.Options, "temperature"); ok {
		opts.Temperature = v
	}
	if v, ok := floatOption(cfg.Options, "top_p"); ok {
		opts.TopP = v
	}
	if v, ok := intOption(cfg.Options, "top_k"); ok {
		opts.TopK = v
	}
	if v, ok := intOption(cfg.Options, "num_ctx"); ok {
		opts.NumCtx = v
	}
	if v, ok := intOption(cfg.Options, "num_predict"); ok {
		opts.NumPredict = v
	}
	return opts
}

// jsonOnlyTransport rejects responses that cannot be the model speaking:
// error statuses and non-JSON bodies both become ErrModelUnavailable
// carrying the first bytes of the body.
type jsonOnlyTransport struct {
	inner    http.RoundTripper
	provider string
}

func (t *jsonOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, &ErrModelUnavailable{Provider: t.provider, Cause: err}
	}
	if resp.StatusCode >= 400 {
		return nil, t.reject(resp)
	}
	// Streaming replies are application/x-ndjson, everything else
	// application/json.
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "json") && !strings.Contains(ct, "ndjson") {
		return nil, t.reject(resp)
	}
	return resp, nil
}

func (t *jsonOnlyTransport) reject(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()
	return &ErrModelUnavailable{
		Provider: t.provider,
		Body:     strings.TrimSpace(string(body)),
	}
}
