// Package assistant sends a captured question, with optional screenshots
// and raw audio, to the Gemini API and parses the reply.
package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.dicta.dev/dicta/audio"
)

const assistantBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

const screenshotInstruction = "When analyzing the screenshot, focus on the biggest canvas area only. Ignore UI elements, menus, and sidebars."

const audioInstruction = "Please transcribe the audio first, then provide your response. Format your response as:\n\nTranscription: [the transcribed text]\n\nResponse: [your answer]"

// Request is one assistant dispatch. Text may be empty when Audio carries
// the question. FullScreenImages marks the screenshots as full-display
// grabs, which changes the framing instruction.
type Request struct {
	Text             string
	Model            string
	APIKey           string
	Images           [][]byte
	FullScreenImages bool
	Audio            []float32
	SampleRate       int
	History          []Message
}

// Response is a parsed assistant reply. Transcription is set only when the
// assistant was asked to transcribe attached audio and used the expected
// reply format.
type Response struct {
	Transcription string
	Answer        string
}

// Client dispatches requests to the Gemini API.
type Client struct {
	baseURL string
	http    *http.Client
	ips     *ipCache
}

// ClientOption tweaks client construction.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// WithIPLookupURL overrides the public-IP lookup endpoint.
func WithIPLookupURL(url string) ClientOption {
	return func(c *Client) { c.ips = newIPCache(url) }
}

// NewClient creates an assistant client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: assistantBaseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
		ips:     newIPCache(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// mapModelName translates friendly model names to API identifiers.
func mapModelName(model string) string {
	switch model {
	case "gemini-3-flash":
		return "gemini-3-flash-preview"
	default:
		return model
	}
}

// sniffImageMIME inspects magic bytes, defaulting to PNG.
func sniffImageMIME(data []byte) string {
	pngMagic := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	jpegMagic := []byte{0xFF, 0xD8, 0xFF}
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], pngMagic):
		return "image/png"
	case len(data) >= 3 && bytes.Equal(data[:3], jpegMagic):
		return "image/jpeg"
	default:
		return "image/png"
	}
}

type assistantPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type assistantContent struct {
	Role  string          `json:"role"`
	Parts []assistantPart `json:"parts"`
}

type assistantRequest struct {
	Contents         []assistantContent `json:"contents"`
	GenerationConfig generationConfig   `json:"generationConfig"`
	Tools            []assistantTool    `json:"tools"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type assistantTool struct {
	GoogleSearch struct{} `json:"googleSearch"`
}

type assistantResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// buildParts assembles the content-part list for the current turn.
// locationHint is appended to at most one textual instruction.
func buildParts(req Request, locationHint string) ([]assistantPart, error) {
	var parts []assistantPart
	locationAdded := false

	hasImages := len(req.Images) > 0
	hasAudio := len(req.Audio) > 0
	fullScreen := hasImages && req.FullScreenImages

	switch {
	case req.Text != "":
		text := req.Text
		if fullScreen {
			text = screenshotInstruction + "\n\n" + text
		}
		if locationHint != "" {
			text += locationHint
			locationAdded = true
		}
		parts = append(parts, assistantPart{Text: text})
	case fullScreen:
		instruction := screenshotInstruction
		if locationHint != "" {
			instruction += locationHint
			locationAdded = true
		}
		parts = append(parts, assistantPart{Text: instruction})
	case locationHint != "" && !hasAudio:
		parts = append(parts, assistantPart{Text: locationHint})
	}

	if len(parts) == 0 && !hasAudio && !hasImages {
		return nil, fmt.Errorf("at least one of text, audio, or images must be provided")
	}

	for _, img := range req.Images {
		parts = append(parts, assistantPart{InlineData: &inlineData{
			MIMEType: sniffImageMIME(img),
			Data:     base64.StdEncoding.EncodeToString(img),
		}})
	}

	if hasAudio {
		rate := req.SampleRate
		if rate == 0 {
			rate = audio.DefaultSampleRate
		}
		parts = append(parts, assistantPart{InlineData: &inlineData{
			MIMEType: "audio/wav",
			Data:     base64.StdEncoding.EncodeToString(audio.EncodeWAV(req.Audio, rate)),
		}})
	}

	if hasAudio && req.Text == "" {
		instruction := audioInstruction
		if locationHint != "" && !locationAdded {
			instruction += locationHint
		}
		parts = append(parts, assistantPart{Text: instruction})
	}

	return parts, nil
}

// parseReply splits a reply into transcription and answer when the
// transcription markers are present; otherwise the whole reply is the
// answer.
func parseReply(reply string, expectTranscription bool) Response {
	if !expectTranscription {
		return Response{Answer: reply}
	}

	start := strings.Index(reply, "Transcription:")
	if start < 0 {
		return Response{Answer: reply}
	}

	rest := reply[start:]
	sep := "\n\nResponse:"
	end := strings.Index(rest, sep)
	if end < 0 {
		sep = "\nResponse:"
		end = strings.Index(rest, sep)
	}
	if end < 0 {
		return Response{Answer: reply}
	}

	return Response{
		Transcription: strings.TrimSpace(rest[len("Transcription:"):end]),
		Answer:        strings.TrimSpace(rest[end+len(sep):]),
	}
}

// Ask dispatches the request and parses the reply. A successful return
// never has an empty Answer semantics beyond what the model produced;
// errors carry the API failure.
func (c *Client) Ask(ctx context.Context, req Request) (Response, error) {
	if req.APIKey == "" {
		return Response{}, fmt.Errorf("assistant api key is not configured")
	}

	var locationHint string
	if ip := c.ips.Lookup(ctx); ip != "" {
		locationHint = fmt.Sprintf("\n\n[Context: The user's public IP address is %s. Please use this IP address to determine the user's approximate location (city and region) and personalize your responses accordingly, such as providing location-specific information, prices in local currency, or regional context when relevant.]", ip)
	}

	parts, err := buildParts(req, locationHint)
	if err != nil {
		return Response{}, err
	}

	contents := make([]assistantContent, 0, len(req.History)+1)
	for _, msg := range req.History {
		contents = append(contents, assistantContent{
			Role:  msg.Role,
			Parts: []assistantPart{{Text: msg.Text}},
		})
	}
	contents = append(contents, assistantContent{Role: "user", Parts: parts})

	body := assistantRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
		Tools: []assistantTool{{}},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, mapModelName(req.Model), req.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("api error: %d - %s", resp.StatusCode, string(respBody))
	}

	var apiResp assistantResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Candidates) == 0 {
		return Response{}, fmt.Errorf("no candidates returned")
	}

	var texts []string
	for _, p := range apiResp.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return Response{}, fmt.Errorf("no text in response")
	}

	expectTranscription := len(req.Audio) > 0 && req.Text == ""
	return parseReply(strings.Join(texts, "\n"), expectTranscription), nil
}
