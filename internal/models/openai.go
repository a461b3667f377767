package models

import (
	"context"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/anuris-ai/anuris/internal/config"
)

const defaultOpenAITimeout = 60 * time.Second

// NewOpenAI creates a ChatModel for OpenAI or any OpenAI-compatible
// endpoint selected through cfg.BaseURL.
func NewOpenAI(ctx context.Context, cfg config.Provider, apiKey string) (model.ToolCallingChatModel, error) {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:  apiKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}
	if v, ok := floatOption(cfg.Options, "temperature"); ok {
		modelConfig.Temperature = &v
	}
	if v, ok := floatOption(cfg.Options, "top_p"); ok {
		modelConfig.TopP = &v
	}

	return einoopenai.NewChatModel(ctx, modelConfig)
}
