// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.dicta.dev/dicta/internal/types"
)

const (
	appName        = "dicta"
	configFileName = "config.json"
)

// Settings is the user-facing configuration document. The session layer
// never holds a pointer into the store; it works on value snapshots taken
// at session start and again in the stop continuation.
type Settings struct {
	// Microphone and audio feedback
	AlwaysOnMicrophone bool   `json:"always_on_microphone"`
	AudioFeedback      bool   `json:"audio_feedback"`
	SelectedLanguage   string `json:"selected_language"`

	// Shortcut bindings
	Bindings []types.Binding `json:"bindings"`

	// Transcription engine
	STTEngine    string `json:"stt_engine"` // "whisper-local" or "whisper-api"
	STTModelSize string `json:"stt_model_size,omitempty"`
	STTAPIKey    string `json:"stt_api_key,omitempty"`
	STTBaseURL   string `json:"stt_base_url,omitempty"`

	// Post-processing chain
	PostProcessEnabled          bool              `json:"post_process_enabled"`
	PostProcessProviders        []types.Provider  `json:"post_process_providers,omitempty"`
	PostProcessSelectedProvider string            `json:"post_process_selected_provider,omitempty"`
	PostProcessModels           map[string]string `json:"post_process_models,omitempty"`
	PostProcessAPIKeys          map[string]string `json:"post_process_api_keys,omitempty"`
	PostProcessPrompts          []types.Prompt    `json:"post_process_prompts,omitempty"`
	PostProcessSelectedPromptID string            `json:"post_process_selected_prompt_id,omitempty"`

	// AI assistant
	AssistantEnabled   bool   `json:"assistant_enabled"`
	AssistantAPIKey    string `json:"assistant_api_key,omitempty"`
	AssistantModel     string `json:"assistant_model,omitempty"`
	AssistantSendAudio bool   `json:"assistant_send_audio"`

	ScreenshotMode types.ScreenshotMode `json:"screenshot_mode"`
}

// ActivePostProcessProvider returns the selected rewrite provider, or nil.
func (s *Settings) ActivePostProcessProvider() *types.Provider {
	idx := slices.IndexFunc(s.PostProcessProviders, func(p types.Provider) bool {
		return p.ID == s.PostProcessSelectedProvider
	})
	if idx == -1 {
		return nil
	}
	p := s.PostProcessProviders[idx]
	return &p
}

// SelectedPrompt returns the selected rewrite prompt, or nil.
func (s *Settings) SelectedPrompt() *types.Prompt {
	idx := slices.IndexFunc(s.PostProcessPrompts, func(p types.Prompt) bool {
		return p.ID == s.PostProcessSelectedPromptID
	})
	if idx == -1 {
		return nil
	}
	p := s.PostProcessPrompts[idx]
	return &p
}

// AssistantActive reports whether the assistant is enabled and configured.
func (s *Settings) AssistantActive() bool {
	return s.AssistantEnabled && s.AssistantAPIKey != ""
}

// AssistantAudioActive reports whether raw audio should route to the
// assistant instead of the local transcription engine.
func (s *Settings) AssistantAudioActive() bool {
	return s.AssistantActive() && s.AssistantSendAudio
}

func (s *Settings) clone() Settings {
	c := *s
	c.Bindings = slices.Clone(s.Bindings)
	c.PostProcessProviders = slices.Clone(s.PostProcessProviders)
	c.PostProcessPrompts = slices.Clone(s.PostProcessPrompts)
	c.PostProcessModels = maps.Clone(s.PostProcessModels)
	c.PostProcessAPIKeys = maps.Clone(s.PostProcessAPIKeys)
	return c
}

// Store holds the settings document behind a mutex. Reads hand out value
// copies so a session working from a snapshot is unaffected by concurrent
// edits from the settings UI.
type Store struct {
	mu       sync.Mutex
	settings Settings
	path     string
}

// Load reads configuration from the config file.
// Returns a store with defaults if the file doesn't exist.
func Load() (*Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Store, error) {
	st := &Store{path: path, settings: defaultSettings()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&s)
	st.settings = s
	return st, nil
}

// Get returns a point-in-time copy of the settings.
func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.settings.clone()
}

// Update applies fn to the settings under the lock and persists the result.
func (st *Store) Update(fn func(*Settings)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.settings)
	return st.save()
}

// Save persists the current settings to disk.
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.save()
}

func (st *Store) save() error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(&st.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(st.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// DataDir returns the per-user directory for history and cue files.
func DataDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

func defaultSettings() Settings {
	s := Settings{
		AudioFeedback:    true,
		SelectedLanguage: "en",
		STTEngine:        "whisper-local",
		STTModelSize:     "base",
		AssistantModel:   "gemini-3-flash",
		ScreenshotMode:   types.ScreenshotActiveWindow,
		Bindings: []types.Binding{
			{ID: "main", Shortcut: "alt+space", Action: types.ActionTranscribe, PushToTalk: true},
		},
	}
	applyDefaults(&s)
	return s
}

func applyDefaults(s *Settings) {
	if s.SelectedLanguage == "" {
		s.SelectedLanguage = "en"
	}
	if s.STTEngine == "" {
		s.STTEngine = "whisper-local"
	}
	if s.STTModelSize == "" {
		s.STTModelSize = "base"
	}
	if s.AssistantModel == "" {
		s.AssistantModel = "gemini-3-flash"
	}
	if s.ScreenshotMode == "" {
		s.ScreenshotMode = types.ScreenshotActiveWindow
	}
	if s.PostProcessModels == nil {
		s.PostProcessModels = make(map[string]string)
	}
	if s.PostProcessAPIKeys == nil {
		s.PostProcessAPIKeys = make(map[string]string)
	}
}
