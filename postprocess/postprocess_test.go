package postprocess

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.dicta.dev/dicta/config"
	"go.dicta.dev/dicta/internal/types"
	"go.dicta.dev/dicta/llm"
)

type fakeCompleter struct {
	calls    int
	lastMsgs []llm.Message
	reply    string
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.calls++
	f.lastMsgs = messages
	return f.reply, f.err
}

type fakeOnDevice struct {
	available  bool
	calls      int
	lastModel  string
	lastPrompt string
	lastLimit  int
	reply      string
	err        error
}

func (f *fakeOnDevice) Available(ctx context.Context) bool { return f.available }

func (f *fakeOnDevice) Generate(ctx context.Context, model, prompt string, tokenLimit int) (string, error) {
	f.calls++
	f.lastModel = model
	f.lastPrompt = prompt
	f.lastLimit = tokenLimit
	return f.reply, f.err
}

func rewriteSettings() config.Settings {
	return config.Settings{
		SelectedLanguage:            "en",
		PostProcessEnabled:          true,
		PostProcessProviders:        []types.Provider{{ID: "openai", Type: "openai"}},
		PostProcessSelectedProvider: "openai",
		PostProcessModels:           map[string]string{"openai": "gpt-4o-mini"},
		PostProcessAPIKeys:          map[string]string{"openai": "key"},
		PostProcessPrompts:          []types.Prompt{{ID: "p1", Name: "Clean up", Prompt: "Fix grammar: ${output}"}},
		PostProcessSelectedPromptID: "p1",
	}
}

func TestConversionFor(t *testing.T) {
	tests := []struct {
		selected string
		want     string
		ok       bool
	}{
		{"zh-Hans", "tw2sp", true},
		{"zh-Hant", "s2twp", true},
		{"zh", "", false},
		{"en", "", false},
		{"ja", "", false},
		{"", "", false},
		{"not-a-tag!!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.selected, func(t *testing.T) {
			got, ok := conversionFor(tt.selected)
			if got != tt.want || ok != tt.ok {
				t.Errorf("conversionFor(%q) = %q, %v; want %q, %v", tt.selected, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestConvertTraditionalToSimplified(t *testing.T) {
	c := NewChain(nil)
	settings := rewriteSettings()
	settings.SelectedLanguage = "zh-Hans"

	out := c.Process(context.Background(), settings, "我們一起學習")
	if out.Kind != Converted {
		t.Fatalf("kind = %v, want Converted", out.Kind)
	}
	if out.Text == "我們一起學習" {
		t.Error("text was not converted to Simplified script")
	}
	if strings.Contains(out.Text, "們") {
		t.Errorf("converted text still contains Traditional form: %q", out.Text)
	}
}

func TestConvertIdempotent(t *testing.T) {
	c := NewChain(nil)
	settings := config.Settings{SelectedLanguage: "zh-Hans"}

	first := c.Process(context.Background(), settings, "你好")
	second := c.Process(context.Background(), settings, first.Text)
	if first.Text != second.Text {
		t.Errorf("conversion not idempotent: %q then %q", first.Text, second.Text)
	}
}

func TestConvertSuppressesRewrite(t *testing.T) {
	fc := &fakeCompleter{reply: "should not be used"}
	c := NewChain(nil)
	c.newCompleter = func(apiType, apiKey, baseURL, model string, opts llm.Options) llm.Completer {
		return fc
	}

	settings := rewriteSettings()
	settings.SelectedLanguage = "zh-Hant"

	out := c.Process(context.Background(), settings, "学习")
	if out.Kind != Converted {
		t.Fatalf("kind = %v, want Converted", out.Kind)
	}
	if fc.calls != 0 {
		t.Errorf("rewrite ran %d times alongside script conversion", fc.calls)
	}
}

func TestRewrite(t *testing.T) {
	fc := &fakeCompleter{reply: "Hello, world."}
	c := NewChain(nil)
	c.newCompleter = func(apiType, apiKey, baseURL, model string, opts llm.Options) llm.Completer {
		return fc
	}

	out := c.Process(context.Background(), rewriteSettings(), "hello world")
	if out.Kind != Rewritten {
		t.Fatalf("kind = %v, want Rewritten", out.Kind)
	}
	if out.Text != "Hello, world." {
		t.Errorf("text = %q", out.Text)
	}
	if out.PromptUsed != "Fix grammar: ${output}" {
		t.Errorf("prompt used = %q", out.PromptUsed)
	}
	if len(fc.lastMsgs) != 1 || fc.lastMsgs[0].Content != "Fix grammar: hello world" {
		t.Errorf("placeholder not substituted: %+v", fc.lastMsgs)
	}
}

func TestRewritePreconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"disabled", func(s *config.Settings) { s.PostProcessEnabled = false }},
		{"no provider selected", func(s *config.Settings) { s.PostProcessSelectedProvider = "" }},
		{"no model configured", func(s *config.Settings) { delete(s.PostProcessModels, "openai") }},
		{"no prompt selected", func(s *config.Settings) { s.PostProcessSelectedPromptID = "" }},
		{"blank prompt body", func(s *config.Settings) { s.PostProcessPrompts[0].Prompt = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCompleter{reply: "changed"}
			c := NewChain(nil)
			c.newCompleter = func(apiType, apiKey, baseURL, model string, opts llm.Options) llm.Completer {
				return fc
			}

			settings := rewriteSettings()
			tt.mutate(&settings)

			out := c.Process(context.Background(), settings, "original")
			if out.Kind != None || out.Text != "original" {
				t.Errorf("outcome = %+v, want passthrough", out)
			}
			if fc.calls != 0 {
				t.Errorf("completer called %d times", fc.calls)
			}
		})
	}
}

func TestRewriteFailureFallsBack(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("boom")}
	c := NewChain(nil)
	c.newCompleter = func(apiType, apiKey, baseURL, model string, opts llm.Options) llm.Completer {
		return fc
	}

	out := c.Process(context.Background(), rewriteSettings(), "original")
	if out.Kind != None || out.Text != "original" {
		t.Errorf("outcome = %+v, want passthrough on provider error", out)
	}
}

func TestRewriteOnDevice(t *testing.T) {
	fd := &fakeOnDevice{available: true, reply: "polished"}
	c := NewChain(fd)

	settings := rewriteSettings()
	settings.PostProcessProviders = []types.Provider{{ID: types.OllamaProviderID, Type: "ollama"}}
	settings.PostProcessSelectedProvider = types.OllamaProviderID
	settings.PostProcessModels = map[string]string{types.OllamaProviderID: "llama3@2000"}

	out := c.Process(context.Background(), settings, "raw text")
	if out.Kind != Rewritten || out.Text != "polished" {
		t.Fatalf("outcome = %+v", out)
	}
	if fd.lastModel != "llama3" {
		t.Errorf("model = %q", fd.lastModel)
	}
	if fd.lastLimit != 2000 {
		t.Errorf("token limit = %d, want 2000", fd.lastLimit)
	}
	if !strings.Contains(fd.lastPrompt, "raw text") {
		t.Errorf("prompt = %q", fd.lastPrompt)
	}
}

func TestSplitOnDeviceModel(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantLimit int
	}{
		{"llama3", "llama3", llm.DefaultMaxTokens},
		{"llama3@2000", "llama3", 2000},
		{"llama3:8b@500", "llama3:8b", 500},
		{"llama3@bad", "llama3@bad", llm.DefaultMaxTokens},
		{"llama3@-5", "llama3@-5", llm.DefaultMaxTokens},
	}

	for _, tt := range tests {
		name, limit := splitOnDeviceModel(tt.in)
		if name != tt.wantName || limit != tt.wantLimit {
			t.Errorf("splitOnDeviceModel(%q) = %q, %d; want %q, %d", tt.in, name, limit, tt.wantName, tt.wantLimit)
		}
	}
}

func TestRewriteOnDeviceUnavailable(t *testing.T) {
	fd := &fakeOnDevice{available: false}
	c := NewChain(fd)

	settings := rewriteSettings()
	settings.PostProcessProviders = []types.Provider{{ID: types.OllamaProviderID, Type: "ollama"}}
	settings.PostProcessSelectedProvider = types.OllamaProviderID
	settings.PostProcessModels = map[string]string{types.OllamaProviderID: "llama3"}

	out := c.Process(context.Background(), settings, "raw text")
	if out.Kind != None || out.Text != "raw text" {
		t.Errorf("outcome = %+v, want passthrough when daemon is down", out)
	}
	if fd.calls != 0 {
		t.Errorf("Generate called %d times despite unavailable daemon", fd.calls)
	}
}
