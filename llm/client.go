// Package llm provides HTTP clients for chat-completion APIs used by the
// post-processing rewrite step.
package llm

import (
	"context"
	"net/http"
	"time"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures completion behavior.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// DefaultMaxTokens is applied when no limit is configured.
const DefaultMaxTokens = 1000

// DefaultTemperature is applied when no temperature is configured.
const DefaultTemperature = 0.3

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// completerConfig holds all parameters needed by completers.
type completerConfig struct {
	http        *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewCompleter creates a Completer for the given provider type.
func NewCompleter(apiType, apiKey, baseURL, model string, opts Options) Completer {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	cfg := completerConfig{
		http:        &http.Client{Timeout: 60 * time.Second},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}

	switch apiType {
	case "gemini":
		return &geminiCompleter{cfg: cfg}
	case "claude":
		return &claudeCompleter{cfg: cfg}
	case "openai", "openai-compatible":
		return &openaiCompleter{cfg: cfg, isCompatible: apiType == "openai-compatible"}
	default:
		return &openaiCompleter{cfg: cfg}
	}
}
