package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ProviderConfig selects and configures the inference backend.
type ProviderConfig struct {
	Provider      string
	Model         string
	GeminiAPIKey  string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Logger        zerolog.Logger
}

// NewInferencer returns the configured backend. An empty provider means Gemini.
func NewInferencer(ctx context.Context, cfg ProviderConfig) (Inferencer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		inferencer, err := NewGeminiInferencer(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.Model,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return inferencer, nil
	case ProviderOpenAI:
		inferencer, err := NewOpenAIInferencer(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.Model,
			Logger:  cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return inferencer, nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
}
