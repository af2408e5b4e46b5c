// Package postprocess transforms a raw transcription before delivery.
// Exactly one step may change the text: Chinese script-variant conversion
// when the selected language is a Chinese variant, otherwise an optional
// LLM rewrite through the configured provider.
package postprocess

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/longbridgeapp/opencc"
	"golang.org/x/text/language"

	"go.dicta.dev/dicta/config"
	"go.dicta.dev/dicta/internal/types"
	"go.dicta.dev/dicta/llm"
)

var errOnDeviceUnavailable = errors.New("on-device model daemon not reachable")

// OutcomeKind classifies what the chain did to the text.
type OutcomeKind int

const (
	// None means the text passed through unchanged.
	None OutcomeKind = iota
	// Converted means the script-variant step rewrote the text.
	Converted
	// Rewritten means an LLM rewrite produced the text.
	Rewritten
)

func (k OutcomeKind) String() string {
	switch k {
	case Converted:
		return "converted"
	case Rewritten:
		return "rewritten"
	default:
		return "none"
	}
}

// Outcome is the chain result. Text always holds the final text, equal to
// the input when Kind is None. PromptUsed is set only for Rewritten.
type Outcome struct {
	Kind       OutcomeKind
	Text       string
	PromptUsed string
}

// OnDeviceGenerator is the local-daemon rewrite path, satisfied by
// *llm.Ollama.
type OnDeviceGenerator interface {
	Available(ctx context.Context) bool
	Generate(ctx context.Context, model, prompt string, tokenLimit int) (string, error)
}

// Chain runs the post-processing steps.
type Chain struct {
	onDevice     OnDeviceGenerator
	newCompleter func(apiType, apiKey, baseURL, model string, opts llm.Options) llm.Completer

	mu         sync.Mutex
	converters map[string]*opencc.OpenCC
}

// NewChain creates a chain using the given on-device generator for the
// local provider. A nil generator disables the local provider path.
func NewChain(onDevice OnDeviceGenerator) *Chain {
	return &Chain{
		onDevice:     onDevice,
		newCompleter: llm.NewCompleter,
		converters:   make(map[string]*opencc.OpenCC),
	}
}

// Process runs the chain on transcript using a settings snapshot.
func (c *Chain) Process(ctx context.Context, settings config.Settings, transcript string) Outcome {
	if conversion, ok := conversionFor(settings.SelectedLanguage); ok {
		return c.convert(conversion, transcript)
	}
	return c.rewrite(ctx, settings, transcript)
}

// conversionFor maps a selected-language tag to an OpenCC conversion name.
// Only an explicit Hans or Hant script subtag triggers conversion.
func conversionFor(selected string) (string, bool) {
	tag, err := language.Parse(selected)
	if err != nil {
		return "", false
	}
	base, _ := tag.Base()
	if base.String() != "zh" {
		return "", false
	}
	script, conf := tag.Script()
	if conf != language.Exact {
		return "", false
	}
	switch script.String() {
	case "Hans":
		return "tw2sp", true
	case "Hant":
		return "s2twp", true
	}
	return "", false
}

func (c *Chain) converter(conversion string) (*opencc.OpenCC, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cc, ok := c.converters[conversion]; ok {
		return cc, nil
	}
	cc, err := opencc.New(conversion)
	if err != nil {
		return nil, err
	}
	c.converters[conversion] = cc
	return cc, nil
}

func (c *Chain) convert(conversion, transcript string) Outcome {
	cc, err := c.converter(conversion)
	if err != nil {
		slog.Error("load script converter", "conversion", conversion, "err", err)
		return Outcome{Kind: None, Text: transcript}
	}
	out, err := cc.Convert(transcript)
	if err != nil {
		slog.Error("script conversion", "conversion", conversion, "err", err)
		return Outcome{Kind: None, Text: transcript}
	}
	return Outcome{Kind: Converted, Text: out}
}

func (c *Chain) rewrite(ctx context.Context, settings config.Settings, transcript string) Outcome {
	passthrough := Outcome{Kind: None, Text: transcript}

	if !settings.PostProcessEnabled {
		return passthrough
	}
	provider := settings.ActivePostProcessProvider()
	if provider == nil {
		return passthrough
	}
	model := settings.PostProcessModels[provider.ID]
	if model == "" {
		return passthrough
	}
	prompt := settings.SelectedPrompt()
	if prompt == nil || strings.TrimSpace(prompt.Prompt) == "" {
		return passthrough
	}

	filled := strings.ReplaceAll(prompt.Prompt, "${output}", transcript)

	var (
		out string
		err error
	)
	if provider.ID == types.OllamaProviderID {
		name, limit := splitOnDeviceModel(model)
		out, err = c.rewriteOnDevice(ctx, name, filled, limit)
	} else {
		completer := c.newCompleter(provider.Type, settings.PostProcessAPIKeys[provider.ID], provider.BaseURL, model, llm.Options{})
		out, err = completer.Complete(ctx, []llm.Message{{Role: "user", Content: filled}})
	}
	if err != nil {
		slog.Error("rewrite transcription", "provider", provider.ID, "err", err)
		return passthrough
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return passthrough
	}
	return Outcome{Kind: Rewritten, Text: out, PromptUsed: prompt.Prompt}
}

// splitOnDeviceModel separates an optional "@limit" token-limit suffix
// from an on-device model name, e.g. "llama3@2000".
func splitOnDeviceModel(model string) (string, int) {
	name, suffix, found := strings.Cut(model, "@")
	if !found {
		return model, llm.DefaultMaxTokens
	}
	limit, err := strconv.Atoi(suffix)
	if err != nil || limit <= 0 {
		return model, llm.DefaultMaxTokens
	}
	return name, limit
}

func (c *Chain) rewriteOnDevice(ctx context.Context, model, prompt string, tokenLimit int) (string, error) {
	if c.onDevice == nil {
		return "", errOnDeviceUnavailable
	}
	if !c.onDevice.Available(ctx) {
		return "", errOnDeviceUnavailable
	}
	return c.onDevice.Generate(ctx, model, prompt, tokenLimit)
}
