// Package models adapts configured LLM providers to Eino's
// ToolCallingChatModel interface.
package models

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"github.com/anuris-ai/anuris/internal/config"
)

// CreateModel creates a model.ToolCallingChatModel from a provider config.
func CreateModel(ctx context.Context, cfg config.Provider) (model.ToolCallingChatModel, error) {
	switch strings.ToLower(cfg.Driver) {
	case "anthropic":
		key, err := resolveAPIKey(cfg, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropic(ctx, cfg, key)
	case "openai":
		key, err := resolveAPIKey(cfg, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewOpenAI(ctx, cfg, key)
	case "ollama":
		return NewOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}
}

// resolveAPIKey prefers the config value and falls back to the provider's
// conventional environment variable.
func resolveAPIKey(cfg config.Provider, envVar string) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s: no api key configured and %s is unset", cfg.Driver, envVar)
}
