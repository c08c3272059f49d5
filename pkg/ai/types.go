package ai

import (
	"context"
	"errors"
)

// ErrMissingAPIKey indicates the inference credential was not configured.
var ErrMissingAPIKey = errors.New("inference api key is required")

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("inference provider returned no text")

// Inferencer is a text-in, text-out completion capability. Implementations give
// no guarantee about the shape of the returned text.
type Inferencer interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

// InferencerFunc adapts a plain function to the Inferencer interface.
type InferencerFunc func(ctx context.Context, prompt string) (string, error)

// Infer calls f(ctx, prompt).
func (f InferencerFunc) Infer(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
