package session

import (
	"go.dicta.dev/dicta/config"
	"go.dicta.dev/dicta/shortcut"
)

// deliveryMode is how a finished session hands over its result.
type deliveryMode int

const (
	// deliverPaste types the final text into the focused application.
	deliverPaste deliveryMode = iota
	// deliverAssistantText transcribes locally, then asks the assistant.
	deliverAssistantText
	// deliverAssistantAudio ships the raw samples to the assistant and
	// skips local transcription entirely.
	deliverAssistantAudio
)

// plan is the session's branching, resolved once per stop from the
// settings snapshot and the shortcut token.
type plan struct {
	mode          deliveryMode
	captureScreen bool
}

func resolvePlan(settings config.Settings, token string) plan {
	p := plan{captureScreen: shortcut.HasScreenshotMarker(token)}
	switch {
	case settings.AssistantAudioActive():
		p.mode = deliverAssistantAudio
	case settings.AssistantActive():
		p.mode = deliverAssistantText
	default:
		p.mode = deliverPaste
	}
	return p
}
