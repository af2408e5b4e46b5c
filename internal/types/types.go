// Package types provides shared type definitions for the application.
package types

// BindingAction identifies what a shortcut binding does when triggered.
type BindingAction string

const (
	ActionTranscribe BindingAction = "transcribe"
	ActionCancel     BindingAction = "cancel"
	ActionTest       BindingAction = "test"
)

// Binding maps a keyboard shortcut to an action.
type Binding struct {
	ID         string        `json:"id"`
	Shortcut   string        `json:"shortcut"` // e.g. "alt+space"
	Action     BindingAction `json:"action"`
	PushToTalk bool          `json:"push_to_talk"` // false = press toggles on/off
}

// Provider represents a chat-completion provider usable for rewriting.
type Provider struct {
	ID      string `json:"id"`
	Type    string `json:"type"` // "openai", "openai-compatible", "gemini", "claude", "ollama"
	BaseURL string `json:"base_url,omitempty"`
}

// OllamaProviderID is the designated on-device provider. It is special-cased
// in the post-processing chain: availability is probed before use and the
// configured model string carries an optional token limit suffix.
const OllamaProviderID = "ollama"

// Prompt is a rewrite prompt template. The template body may contain the
// ${output} placeholder, substituted with the raw transcription.
type Prompt struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// ScreenshotMode selects how context capture grabs the screen.
type ScreenshotMode string

const (
	ScreenshotActiveWindow ScreenshotMode = "active-window"
	ScreenshotFullScreen   ScreenshotMode = "full-screen"
)

// HistoryEntry is one persisted session transcript.
type HistoryEntry struct {
	ID            string  `json:"id"`
	CreatedAt     int64   `json:"created_at"` // unix milliseconds
	Transcript    string  `json:"transcript"`
	PostProcessed string  `json:"post_processed,omitempty"`
	PromptUsed    string  `json:"prompt_used,omitempty"`
	Language      string  `json:"language,omitempty"`
	DurationMS    int64   `json:"duration_ms"`
	SampleRate    int     `json:"sample_rate"`
	AudioKey      string  `json:"audio_key,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
}
