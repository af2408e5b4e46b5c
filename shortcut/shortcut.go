// Package shortcut turns global keyboard events into session actions. A
// binding's accelerator is matched against a chord built from tracked
// modifier state plus the current key event.
package shortcut

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"go.dicta.dev/dicta/internal/types"
)

// ScreenshotMarker is appended to the shortcut token when Ctrl is held at
// trigger time, requesting screen context for the session.
const ScreenshotMarker = "|SCREENSHOT"

// HasScreenshotMarker reports whether a shortcut token requests capture.
func HasScreenshotMarker(token string) bool {
	return strings.Contains(token, ScreenshotMarker)
}

// Handler receives binding triggers. Start/Stop carry the raw shortcut
// token, possibly suffixed with ScreenshotMarker.
type Handler interface {
	Start(bindingID, token string)
	Stop(bindingID, token string)
	Cancel()
}

// ToggleTable answers whether a toggle binding currently has a session on.
type ToggleTable interface {
	ToggledOn(bindingID string) bool
}

// chord is a parsed accelerator.
type chord struct {
	ctrl  bool
	shift bool
	alt   bool
	meta  bool
	key   string
}

// parseChord parses accelerators like "alt+space" or "ctrl+shift+r".
func parseChord(accel string) (chord, error) {
	var c chord
	parts := strings.Split(strings.ToLower(strings.TrimSpace(accel)), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			c.ctrl = true
		case "shift":
			c.shift = true
		case "alt", "option", "opt":
			c.alt = true
		case "cmd", "command", "meta", "super", "win":
			c.meta = true
		case "":
			return chord{}, fmt.Errorf("empty component in accelerator %q", accel)
		default:
			if i != len(parts)-1 {
				return chord{}, fmt.Errorf("unknown modifier %q in accelerator %q", part, accel)
			}
			c.key = part
		}
	}
	if c.key == "" {
		return chord{}, fmt.Errorf("accelerator %q has no non-modifier key", accel)
	}
	return c, nil
}

// Rawcodes seen for modifier keys across X11 and macOS layouts.
var (
	ctrlRawcodes  = map[uint16]bool{65507: true, 65508: true, 37: true, 105: true, 29: true, 59: true}
	shiftRawcodes = map[uint16]bool{65505: true, 65506: true, 50: true, 42: true}
	altRawcodes   = map[uint16]bool{65513: true, 65514: true, 64: true, 108: true, 56: true, 58: true}
	metaRawcodes  = map[uint16]bool{65515: true, 65516: true, 133: true, 134: true, 55: true}
)

// Rawcodes for Escape on X11 and macOS.
var escRawcodes = map[uint16]bool{65307: true, 53: true}

// keyName maps a key event to the name used in accelerators.
func keyName(ev hook.Event) string {
	switch ev.Keychar {
	case ' ':
		return "space"
	case 0, 65535:
		if escRawcodes[ev.Rawcode] {
			return "esc"
		}
		return ""
	}
	return strings.ToLower(string(ev.Keychar))
}

// Listener runs the global keyboard hook and dispatches binding triggers.
type Listener struct {
	handler  Handler
	bindings func() []types.Binding
	toggles  ToggleTable

	mu          sync.Mutex
	ctrl        bool
	shift       bool
	alt         bool
	meta        bool
	pressed     map[string]bool
	cancelChord *chord
	stop        chan struct{}
}

// NewListener creates a listener. bindings is called per key event so
// settings edits take effect without a restart.
func NewListener(handler Handler, bindings func() []types.Binding, toggles ToggleTable) *Listener {
	return &Listener{
		handler:  handler,
		bindings: bindings,
		toggles:  toggles,
		pressed:  make(map[string]bool),
		stop:     make(chan struct{}),
	}
}

// Run blocks consuming hook events until Stop is called.
func (l *Listener) Run() {
	events := hook.Start()
	defer hook.End()

	slog.Info("shortcut listener started")
	for {
		select {
		case <-l.stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			l.handleEvent(ev)
		}
	}
}

// Stop terminates Run.
func (l *Listener) Stop() {
	close(l.stop)
}

// RegisterCancel arms a transient cancel shortcut. Safe to call from any
// goroutine; callers invoke it off the event path to keep the hook loop
// from blocking on itself.
func (l *Listener) RegisterCancel(accel string) error {
	c, err := parseChord(accel)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.cancelChord = &c
	l.mu.Unlock()
	return nil
}

// UnregisterCancel disarms the transient cancel shortcut.
func (l *Listener) UnregisterCancel() {
	l.mu.Lock()
	l.cancelChord = nil
	l.mu.Unlock()
}

func (l *Listener) handleEvent(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		l.keyDown(ev)
	case hook.KeyUp:
		l.keyUp(ev)
	}
}

func (l *Listener) keyDown(ev hook.Event) {
	l.mu.Lock()
	if l.setModifier(ev.Rawcode, true) {
		l.mu.Unlock()
		return
	}

	name := keyName(ev)
	if name == "" {
		l.mu.Unlock()
		return
	}

	if c := l.cancelChord; c != nil && l.matches(*c, name) {
		l.mu.Unlock()
		l.handler.Cancel()
		return
	}

	type trigger struct {
		id    string
		token string
		start bool
	}
	var fire *trigger

	for _, b := range l.bindings() {
		switch b.Action {
		case types.ActionTranscribe, types.ActionCancel, types.ActionTest:
		default:
			continue
		}
		c, err := parseChord(b.Shortcut)
		if err != nil {
			slog.Warn("bad binding shortcut", "binding", b.ID, "shortcut", b.Shortcut, "err", err)
			continue
		}
		if !l.matches(c, name) {
			continue
		}

		if b.Action == types.ActionCancel {
			l.mu.Unlock()
			l.handler.Cancel()
			return
		}

		if b.Action == types.ActionTest {
			if !l.pressed[b.ID] {
				l.pressed[b.ID] = true
				slog.Info("test shortcut pressed", "binding", b.ID, "shortcut", b.Shortcut)
			}
			break
		}

		token := b.Shortcut
		if l.ctrl && !c.ctrl {
			token += ScreenshotMarker
		}

		if b.PushToTalk {
			if l.pressed[b.ID] {
				break // key repeat
			}
			l.pressed[b.ID] = true
			fire = &trigger{id: b.ID, token: token, start: true}
		} else {
			fire = &trigger{id: b.ID, token: token, start: !l.toggles.ToggledOn(b.ID)}
		}
		break
	}
	l.mu.Unlock()

	if fire == nil {
		return
	}
	if fire.start {
		l.handler.Start(fire.id, fire.token)
	} else {
		l.handler.Stop(fire.id, fire.token)
	}
}

func (l *Listener) keyUp(ev hook.Event) {
	l.mu.Lock()
	if l.setModifier(ev.Rawcode, false) {
		l.mu.Unlock()
		return
	}

	name := keyName(ev)
	if name == "" {
		l.mu.Unlock()
		return
	}

	type trigger struct {
		id    string
		token string
	}
	var fire *trigger

	for _, b := range l.bindings() {
		if !l.pressed[b.ID] {
			continue
		}
		if b.Action == types.ActionTest {
			c, err := parseChord(b.Shortcut)
			if err != nil || c.key != name {
				continue
			}
			delete(l.pressed, b.ID)
			slog.Info("test shortcut released", "binding", b.ID, "shortcut", b.Shortcut)
			continue
		}
		if b.Action != types.ActionTranscribe || !b.PushToTalk {
			continue
		}
		c, err := parseChord(b.Shortcut)
		if err != nil || c.key != name {
			continue
		}
		delete(l.pressed, b.ID)

		token := b.Shortcut
		if l.ctrl && !c.ctrl {
			token += ScreenshotMarker
		}
		fire = &trigger{id: b.ID, token: token}
		break
	}
	l.mu.Unlock()

	if fire != nil {
		l.handler.Stop(fire.id, fire.token)
	}
}

// setModifier updates tracked modifier state; reports whether the rawcode
// was a modifier key. Caller holds l.mu.
func (l *Listener) setModifier(rawcode uint16, down bool) bool {
	switch {
	case ctrlRawcodes[rawcode]:
		l.ctrl = down
	case shiftRawcodes[rawcode]:
		l.shift = down
	case altRawcodes[rawcode]:
		l.alt = down
	case metaRawcodes[rawcode]:
		l.meta = down
	default:
		return false
	}
	return true
}

// matches reports whether the current modifier state plus key event
// satisfies the chord. Extra held modifiers are tolerated so Ctrl can be
// overloaded as the screenshot marker. Caller holds l.mu.
func (l *Listener) matches(c chord, name string) bool {
	if c.key != name {
		return false
	}
	if c.shift && !l.shift || c.alt && !l.alt || c.meta && !l.meta || c.ctrl && !l.ctrl {
		return false
	}
	return true
}
