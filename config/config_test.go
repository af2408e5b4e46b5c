package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.dicta.dev/dicta/internal/types"
)

func TestLoadFromMissingFile(t *testing.T) {
	st, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	s := st.Get()
	if s.SelectedLanguage != "en" {
		t.Errorf("SelectedLanguage = %q, want %q", s.SelectedLanguage, "en")
	}
	if s.STTEngine != "whisper-local" {
		t.Errorf("STTEngine = %q, want %q", s.STTEngine, "whisper-local")
	}
	if !s.AudioFeedback {
		t.Error("AudioFeedback should default to true")
	}
	if len(s.Bindings) == 0 {
		t.Error("default bindings missing")
	}
}

func TestUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	st, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if err := st.Update(func(s *Settings) {
		s.AssistantEnabled = true
		s.AssistantAPIKey = "key"
		s.AssistantSendAudio = true
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	again, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	s := again.Get()
	if !s.AssistantAudioActive() {
		t.Error("AssistantAudioActive() = false after enabling assistant audio")
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	st, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	snap := st.Get()
	if err := st.Update(func(s *Settings) {
		s.SelectedLanguage = "zh-Hans"
		s.PostProcessModels["openai"] = "gpt-4o-mini"
		s.Bindings[0].Shortcut = "ctrl+m"
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if snap.SelectedLanguage != "en" {
		t.Errorf("snapshot language mutated to %q", snap.SelectedLanguage)
	}
	if _, ok := snap.PostProcessModels["openai"]; ok {
		t.Error("snapshot models map shares storage with the store")
	}
	if snap.Bindings[0].Shortcut != "alt+space" {
		t.Errorf("snapshot binding mutated to %q", snap.Bindings[0].Shortcut)
	}
}

func TestSettingsSelectors(t *testing.T) {
	s := Settings{
		PostProcessProviders: []types.Provider{
			{ID: "openai", Type: "openai"},
			{ID: types.OllamaProviderID, Type: "ollama"},
		},
		PostProcessSelectedProvider: types.OllamaProviderID,
		PostProcessPrompts: []types.Prompt{
			{ID: "p1", Name: "Fix grammar", Prompt: "Fix: ${output}"},
		},
		PostProcessSelectedPromptID: "p1",
	}

	p := s.ActivePostProcessProvider()
	if p == nil || p.ID != types.OllamaProviderID {
		t.Fatalf("ActivePostProcessProvider() = %+v", p)
	}
	pr := s.SelectedPrompt()
	if pr == nil || pr.ID != "p1" {
		t.Fatalf("SelectedPrompt() = %+v", pr)
	}

	s.PostProcessSelectedPromptID = "missing"
	if s.SelectedPrompt() != nil {
		t.Error("SelectedPrompt() should be nil for unknown id")
	}

	var zero Settings
	if zero.AssistantActive() || zero.AssistantAudioActive() {
		t.Error("assistant flags should be inactive on zero settings")
	}
}
