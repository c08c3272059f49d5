package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const (
	// ProviderGemini selects the Gemini API backend.
	ProviderGemini = "gemini"

	defaultGeminiModel = "gemini-2.0-flash-lite"
)

// GeminiConfig defines configuration options for the Gemini inferencer.
type GeminiConfig struct {
	APIKey  string
	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string
	Model   string
	Logger  zerolog.Logger
}

// GeminiInferencer implements Inferencer against the Gemini generate content API.
type GeminiInferencer struct {
	client *genai.Client
	model  string
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiInferencer builds a client for the Gemini API.
func NewGeminiInferencer(ctx context.Context, cfg GeminiConfig) (*GeminiInferencer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiInferencer{
		client: client,
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/deadline-sync-api/pkg/ai/gemini"),
		logger: cfg.Logger.With().Str("provider", ProviderGemini).Logger(),
	}, nil
}

// Infer sends the prompt as a single user turn and returns the response text.
func (g *GeminiInferencer) Infer(parent context.Context, prompt string) (string, error) {
	ctx, span := g.tracer.Start(parent, "gemini.infer", trace.WithAttributes(
		attribute.String("model", g.model),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	inferenceDuration.WithLabelValues(ProviderGemini, g.model).Observe(time.Since(start).Seconds())
	if err != nil {
		recordFailure(span, ProviderGemini, g.model, err)
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		recordFailure(span, ProviderGemini, g.model, ErrEmptyResponse)
		return "", ErrEmptyResponse
	}

	g.logger.Debug().Int("response_length", len(text)).Dur("duration", time.Since(start)).Msg("gemini inference completed")
	return text, nil
}
