package ui

import (
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// WailsNotifier forwards session signals to the Wails frontend and tray.
type WailsNotifier struct {
	app     *application.App
	tray    *application.SystemTray
	overlay application.Window
	popup   application.Window

	icons map[TrayState][]byte
}

// NewWailsNotifier wires the notifier to already-created windows. Any icon
// missing from icons leaves the tray unchanged for that state.
func NewWailsNotifier(app *application.App, tray *application.SystemTray, overlay, popup application.Window, icons map[TrayState][]byte) *WailsNotifier {
	return &WailsNotifier{
		app:     app,
		tray:    tray,
		overlay: overlay,
		popup:   popup,
		icons:   icons,
	}
}

func (n *WailsNotifier) SetTrayState(state TrayState) {
	slog.Debug("tray state", "state", state)
	if icon, ok := n.icons[state]; ok && n.tray != nil {
		n.tray.SetIcon(icon)
	}
	n.emit("session-state", state.String())
}

func (n *WailsNotifier) ShowOverlay() {
	if n.overlay != nil {
		n.overlay.Show()
	}
	n.emit("overlay-visible", true)
}

func (n *WailsNotifier) HideOverlay() {
	if n.overlay != nil {
		n.overlay.Hide()
	}
	n.emit("overlay-visible", false)
}

func (n *WailsNotifier) ShowPopup(markdown string) {
	n.emit("assistant-response", markdown)
	if n.popup != nil {
		n.popup.Show()
		n.popup.Focus()
	}
}

// emit is a safe wrapper around app.Event.Emit.
func (n *WailsNotifier) emit(name string, data any) {
	if n.app != nil {
		n.app.Event.Emit(name, data)
	}
}
