package llms

import (
	"context"

	"github.com/koscakluka/receptionist/internal/utils"
)

// Generator produces the next assistant message for a conversation.
//
// Implementations are expected to honour context cancellation and deadlines;
// callers treat any returned error as a transient provider failure.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)
}

// GenerateOptions holds per-request generation parameters.
type GenerateOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   int
}

type GenerateOption func(*GenerateOptions)

// WithModel overrides the model for a single request.
// Repeating this option overwrites the previous model.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

func WithTemperature(temperature float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = utils.Ptr(temperature)
	}
}

func WithMaxTokens(maxTokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = maxTokens
	}
}
