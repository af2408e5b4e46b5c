package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.dicta.dev/dicta/audio"
)

const defaultTranscriptionURL = "https://api.openai.com/v1/audio/transcriptions"

// API transcribes via an OpenAI-compatible transcription endpoint.
type API struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// APIConfig holds configuration for the API engine.
type APIConfig struct {
	APIKey  string
	BaseURL string // optional, defaults to the OpenAI endpoint
	Model   string // optional, defaults to whisper-1
}

// NewAPI creates an API-backed transcription engine.
func NewAPI(cfg APIConfig) *API {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTranscriptionURL
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	return &API{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// InitiateLoad is a no-op; there is nothing to warm up for a remote engine.
func (a *API) InitiateLoad() {}

// Transcribe uploads the samples as a WAV file and returns the text.
func (a *API) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("transcription API key not configured")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(samples, audio.DefaultSampleRate)); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("model", a.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	// The API rejects "auto"; an absent field means auto-detect.
	if language != "" && language != "auto" {
		if err := writer.WriteField("language", normalizeLanguage(language)); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return out.Text, nil
}
