package llm

import (
	"context"
)

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func Apply(opts ...Option) *Options {
	options := &Options{Temperature: 0.7}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Generate sends a single prompt and returns the complete answer. A partial
	// answer is never returned together with an error.
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
