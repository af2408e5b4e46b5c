// Package ui carries fire-and-forget session state signals to the tray
// icon, recording overlay, and assistant popup.
package ui

// TrayState is the tray icon's session indicator.
type TrayState int

const (
	StateIdle TrayState = iota
	StateRecording
	StateTranscribing
	StateAskingAssistant
	StateAssistantReady
)

func (s TrayState) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateAskingAssistant:
		return "asking-assistant"
	case StateAssistantReady:
		return "assistant-ready"
	default:
		return "idle"
	}
}

// Notifier receives one-way session state signals. Implementations must
// never block the caller.
type Notifier interface {
	SetTrayState(state TrayState)
	ShowOverlay()
	HideOverlay()
	ShowPopup(markdown string)
}

// Noop discards all signals. Used in tests and headless runs.
type Noop struct{}

func (Noop) SetTrayState(TrayState) {}
func (Noop) ShowOverlay()           {}
func (Noop) HideOverlay()           {}
func (Noop) ShowPopup(string)       {}
