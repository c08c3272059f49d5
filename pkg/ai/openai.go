package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ProviderOpenAI selects the OpenAI chat completion backend.
	ProviderOpenAI = "openai"

	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIConfig defines configuration options for the OpenAI inferencer.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIInferencer implements Inferencer against the OpenAI chat completion API.
type OpenAIInferencer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIInferencer builds a new inferencer using the provided configuration.
func NewOpenAIInferencer(cfg OpenAIConfig) (*OpenAIInferencer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIInferencer{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/deadline-sync-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("provider", ProviderOpenAI).Logger(),
	}, nil
}

// Infer sends the prompt as a single user message. The response format is left
// free so callers see the same loosely structured text every provider returns.
func (o *OpenAIInferencer) Infer(parent context.Context, prompt string) (string, error) {
	ctx, span := o.tracer.Start(parent, "openai.infer", trace.WithAttributes(
		attribute.String("model", o.cfg.Model),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	inferenceDuration.WithLabelValues(ProviderOpenAI, o.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		recordFailure(span, ProviderOpenAI, o.cfg.Model, err)
		return "", fmt.Errorf("openai infer: %w", err)
	}

	if len(resp.Choices) == 0 {
		recordFailure(span, ProviderOpenAI, o.cfg.Model, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		recordFailure(span, ProviderOpenAI, o.cfg.Model, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	o.logger.Debug().
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai inference completed")
	return content, nil
}
