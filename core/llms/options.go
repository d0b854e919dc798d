package llms

import (
	"net/http"
	"slices"
)

type BaseOptions struct {
	Instructions string
	Turns        []Turn
}

type StreamingPromptOptions struct {
	BaseOptions

	BaseURL     string
	HTTPClient  *http.Client
	MaxTokens   int
	Temperature *float32
}

type StreamingPromptOption interface {
	ApplyToStreaming(*StreamingPromptOptions)
}

// PromptOption is a function that can be used to modify the prompt options.
type PromptOption func(*StreamingPromptOptions)

func (f PromptOption) ApplyToStreaming(o *StreamingPromptOptions) {
	f(o)
}

// WithSystemPrompt sets the system prompt for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Instructions = prompt
	}
}

// WithTurns sets the conversation history that precedes the prompt. The
// slice is copied so later changes by the caller do not leak into an
// in-flight request.
func WithTurns(turns ...Turn) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Turns = slices.Clone(turns)
	}
}

// WithBaseURL points the client at an OpenAI compatible endpoint other than
// the default one.
func WithBaseURL(baseURL string) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.BaseURL = baseURL
	}
}

func WithHTTPClient(client *http.Client) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.HTTPClient = client
	}
}

func WithMaxTokens(maxTokens int) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.MaxTokens = maxTokens
	}
}

func WithTemperature(temperature float32) PromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Temperature = &temperature
	}
}
