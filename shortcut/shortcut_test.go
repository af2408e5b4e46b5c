package shortcut

import (
	"strings"
	"sync"
	"testing"

	hook "github.com/robotn/gohook"

	"go.dicta.dev/dicta/internal/types"
)

type recordedCall struct {
	op    string
	id    string
	token string
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeHandler) Start(id, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{"start", id, token})
}

func (f *fakeHandler) Stop(id, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{"stop", id, token})
}

func (f *fakeHandler) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{op: "cancel"})
}

func (f *fakeHandler) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

type fakeToggles struct {
	on map[string]bool
}

func (f *fakeToggles) ToggledOn(id string) bool { return f.on[id] }

func newTestListener(bindings []types.Binding, toggles *fakeToggles) (*Listener, *fakeHandler) {
	h := &fakeHandler{}
	if toggles == nil {
		toggles = &fakeToggles{on: map[string]bool{}}
	}
	l := NewListener(h, func() []types.Binding { return bindings }, toggles)
	return l, h
}

func keyEvent(kind uint8, rawcode uint16, ch rune) hook.Event {
	return hook.Event{Kind: kind, Rawcode: rawcode, Keychar: ch}
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		accel   string
		want    chord
		wantErr bool
	}{
		{"alt+space", chord{alt: true, key: "space"}, false},
		{"ctrl+shift+r", chord{ctrl: true, shift: true, key: "r"}, false},
		{"cmd+J", chord{meta: true, key: "j"}, false},
		{"space", chord{key: "space"}, false},
		{"Option+Space", chord{alt: true, key: "space"}, false},
		{"ctrl+shift", chord{}, true},
		{"", chord{}, true},
		{"foo+x", chord{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.accel, func(t *testing.T) {
			got, err := parseChord(tt.accel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseChord(%q) err = %v, wantErr %v", tt.accel, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseChord(%q) = %+v, want %+v", tt.accel, got, tt.want)
			}
		})
	}
}

func TestPushToTalkStartStop(t *testing.T) {
	bindings := []types.Binding{{ID: "main", Shortcut: "alt+space", Action: types.ActionTranscribe, PushToTalk: true}}
	l, h := newTestListener(bindings, nil)

	l.handleEvent(keyEvent(hook.KeyDown, 65513, 0)) // alt down
	l.handleEvent(keyEvent(hook.KeyDown, 0, ' '))
	l.handleEvent(keyEvent(hook.KeyHold, 0, ' ')) // key repeat must not restart
	l.handleEvent(keyEvent(hook.KeyUp, 0, ' '))
	l.handleEvent(keyEvent(hook.KeyUp, 65513, 0))

	calls := h.recorded()
	if len(calls) != 2 {
		t.Fatalf("calls = %+v, want start then stop", calls)
	}
	if calls[0].op != "start" || calls[0].id != "main" || calls[0].token != "alt+space" {
		t.Errorf("first call = %+v", calls[0])
	}
	if calls[1].op != "stop" || calls[1].token != "alt+space" {
		t.Errorf("second call = %+v", calls[1])
	}
}

func TestScreenshotMarkerWhenCtrlHeld(t *testing.T) {
	bindings := []types.Binding{{ID: "main", Shortcut: "alt+space", Action: types.ActionTranscribe, PushToTalk: true}}
	l, h := newTestListener(bindings, nil)

	l.handleEvent(keyEvent(hook.KeyDown, 65513, 0)) // alt
	l.handleEvent(keyEvent(hook.KeyDown, 65507, 0)) // ctrl
	l.handleEvent(keyEvent(hook.KeyDown, 0, ' '))
	l.handleEvent(keyEvent(hook.KeyUp, 0, ' '))

	calls := h.recorded()
	if len(calls) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	for _, c := range calls {
		if !HasScreenshotMarker(c.token) {
			t.Errorf("%s token = %q, want screenshot marker", c.op, c.token)
		}
		if !strings.HasPrefix(c.token, "alt+space") {
			t.Errorf("%s token = %q", c.op, c.token)
		}
	}
}

func TestToggleBinding(t *testing.T) {
	bindings := []types.Binding{{ID: "tog", Shortcut: "alt+t", Action: types.ActionTranscribe}}
	toggles := &fakeToggles{on: map[string]bool{}}
	l, h := newTestListener(bindings, toggles)

	l.handleEvent(keyEvent(hook.KeyDown, 65513, 0))
	l.handleEvent(keyEvent(hook.KeyDown, 0, 't'))
	l.handleEvent(keyEvent(hook.KeyUp, 0, 't'))

	toggles.on["tog"] = true
	l.handleEvent(keyEvent(hook.KeyDown, 0, 't'))
	l.handleEvent(keyEvent(hook.KeyUp, 0, 't'))

	calls := h.recorded()
	if len(calls) != 2 {
		t.Fatalf("calls = %+v, want start then stop", calls)
	}
	if calls[0].op != "start" || calls[1].op != "stop" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestTransientCancelShortcut(t *testing.T) {
	bindings := []types.Binding{{ID: "main", Shortcut: "alt+space", Action: types.ActionTranscribe, PushToTalk: true}}
	l, h := newTestListener(bindings, nil)

	if err := l.RegisterCancel("esc"); err != nil {
		t.Fatalf("RegisterCancel: %v", err)
	}
	l.handleEvent(keyEvent(hook.KeyDown, 0, 'e'))
	// 'e' is not the cancel key; nothing fires.
	if len(h.recorded()) != 0 {
		t.Fatalf("calls = %+v, want none", h.recorded())
	}

	if err := l.RegisterCancel("ctrl+c"); err != nil {
		t.Fatalf("RegisterCancel: %v", err)
	}
	l.handleEvent(keyEvent(hook.KeyDown, 65507, 0))
	l.handleEvent(keyEvent(hook.KeyDown, 0, 'c'))

	calls := h.recorded()
	if len(calls) != 1 || calls[0].op != "cancel" {
		t.Fatalf("calls = %+v, want one cancel", calls)
	}

	l.handleEvent(keyEvent(hook.KeyUp, 0, 'c'))
	l.UnregisterCancel()
	l.handleEvent(keyEvent(hook.KeyDown, 0, 'c'))
	if got := h.recorded(); len(got) != 1 {
		t.Errorf("calls after unregister = %+v", got)
	}
	l.handleEvent(keyEvent(hook.KeyUp, 65507, 0))
}

func TestTestBindingLogsWithoutSession(t *testing.T) {
	bindings := []types.Binding{{ID: "x", Shortcut: "alt+space", Action: types.ActionTest}}
	l, h := newTestListener(bindings, nil)

	l.handleEvent(keyEvent(hook.KeyDown, 65513, 0))
	l.handleEvent(keyEvent(hook.KeyDown, 0, ' '))
	l.handleEvent(keyEvent(hook.KeyHold, 0, ' ')) // repeat while held

	if len(h.recorded()) != 0 {
		t.Errorf("calls = %+v, want none for test binding", h.recorded())
	}
	l.mu.Lock()
	held := l.pressed["x"]
	l.mu.Unlock()
	if !held {
		t.Error("test binding press not tracked")
	}

	l.handleEvent(keyEvent(hook.KeyUp, 0, ' '))

	if len(h.recorded()) != 0 {
		t.Errorf("calls after release = %+v, want none", h.recorded())
	}
	l.mu.Lock()
	held = l.pressed["x"]
	l.mu.Unlock()
	if held {
		t.Error("test binding still tracked after release")
	}
}

func TestUnknownBindingActionIgnored(t *testing.T) {
	bindings := []types.Binding{{ID: "x", Shortcut: "alt+space", Action: types.BindingAction("launch")}}
	l, h := newTestListener(bindings, nil)

	l.handleEvent(keyEvent(hook.KeyDown, 65513, 0))
	l.handleEvent(keyEvent(hook.KeyDown, 0, ' '))

	if len(h.recorded()) != 0 {
		t.Errorf("calls = %+v, want none for unknown action", h.recorded())
	}
}

func TestMissingModifierDoesNotFire(t *testing.T) {
	bindings := []types.Binding{{ID: "main", Shortcut: "alt+space", Action: types.ActionTranscribe, PushToTalk: true}}
	l, h := newTestListener(bindings, nil)

	l.handleEvent(keyEvent(hook.KeyDown, 0, ' ')) // space without alt

	if len(h.recorded()) != 0 {
		t.Errorf("calls = %+v, want none without modifier", h.recorded())
	}
}
