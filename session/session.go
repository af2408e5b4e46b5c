// Package session sequences a dictation session from shortcut press to
// delivery: recording, cue timing, transcription, post-processing, the
// assistant fork, history, and the return to idle on every exit path.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"go.dicta.dev/dicta/assistant"
	"go.dicta.dev/dicta/capture"
	"go.dicta.dev/dicta/config"
	"go.dicta.dev/dicta/internal/types"
	"go.dicta.dev/dicta/postprocess"
	"go.dicta.dev/dicta/shortcut"
	"go.dicta.dev/dicta/ui"
)

// cancelAccelerator is the transient shortcut armed while recording.
const cancelAccelerator = "esc"

// AudioSession owns the microphone capture keyed by binding id.
type AudioSession interface {
	TryStart(bindingID string) bool
	Stop(bindingID string) []float32
	Cancel()
	ApplyMute()
	RemoveMute()
	SampleRate() int
}

// Transcriber converts a sample buffer into text.
type Transcriber interface {
	InitiateLoad()
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
}

// PostProcessor runs the text post-processing chain.
type PostProcessor interface {
	Process(ctx context.Context, settings config.Settings, transcript string) postprocess.Outcome
}

// AssistantClient dispatches one assistant request.
type AssistantClient interface {
	Ask(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

// ConversationLog is the shared exchange history.
type ConversationLog interface {
	AddUserMessage(text string)
	AddModelMessage(text string)
	History() []assistant.Message
}

// HistoryWriter persists finished sessions; failures are logged only.
type HistoryWriter interface {
	Save(samples []float32, sampleRate int, transcript, postProcessed, promptUsed string) (types.HistoryEntry, error)
}

// CueSequencer coordinates audio feedback with mute state changes.
type CueSequencer interface {
	BeginAlwaysOn(mute func())
	SignalReady()
	BeginOnDemand(mute func())
	End()
}

// CancelShortcuts arms and disarms the transient cancel shortcut.
type CancelShortcuts interface {
	RegisterCancel(accel string) error
	UnregisterCancel()
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Audio        AudioSession
	Engine       Transcriber
	Chain        PostProcessor
	Assistant    AssistantClient
	Conversation ConversationLog
	Capture      func(mode types.ScreenshotMode) capture.Result
	History      HistoryWriter
	UI           ui.Notifier
	Paste        func(text string) error
	Cues         CueSequencer
	Settings     func() config.Settings
	Cancels      CancelShortcuts
	// RunOnMain schedules fn on the UI-affined thread; paste injection
	// must run there.
	RunOnMain func(fn func())
}

// Orchestrator is the session state machine. One instance serves the whole
// process; per-binding bookkeeping lives in the toggle table.
type Orchestrator struct {
	deps Deps

	mu      sync.Mutex
	toggles map[string]bool

	// generation invalidates in-flight continuations on Cancel. Results
	// arriving with a stale generation are discarded before they touch
	// shared state or the UI.
	generation atomic.Uint64
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.RunOnMain == nil {
		deps.RunOnMain = func(fn func()) { fn() }
	}
	return &Orchestrator{
		deps:    deps,
		toggles: make(map[string]bool),
	}
}

// SetCancelShortcuts injects the cancel-shortcut registrar after
// construction; the shortcut listener and the orchestrator reference each
// other, so one side has to be wired late.
func (o *Orchestrator) SetCancelShortcuts(c CancelShortcuts) {
	o.deps.Cancels = c
}

// ToggledOn reports whether a toggle binding has a session in flight.
// Satisfies the shortcut layer's toggle table.
func (o *Orchestrator) ToggledOn(bindingID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.toggles[bindingID]
}

func (o *Orchestrator) setToggle(bindingID string, on bool) {
	o.mu.Lock()
	o.toggles[bindingID] = on
	o.mu.Unlock()
}

func (o *Orchestrator) clearToggles() {
	o.mu.Lock()
	for id := range o.toggles {
		o.toggles[id] = false
	}
	o.mu.Unlock()
}

func (o *Orchestrator) current(gen uint64) bool {
	return o.generation.Load() == gen
}

// Start begins a recording session for a binding.
func (o *Orchestrator) Start(bindingID, token string) {
	slog.Info("session start", "binding", bindingID)

	o.deps.Engine.InitiateLoad()
	o.setToggle(bindingID, true)
	o.deps.UI.SetTrayState(ui.StateRecording)
	o.deps.UI.ShowOverlay()

	settings := o.deps.Settings()
	cues := settings.AudioFeedback

	var started bool
	if settings.AlwaysOnMicrophone {
		// The microphone is already live, so the start cue runs
		// concurrently with capture startup. The cue timer stays in
		// flight even if the start below fails.
		if cues {
			o.deps.Cues.BeginAlwaysOn(o.deps.Audio.ApplyMute)
		}
		started = o.deps.Audio.TryStart(bindingID)
		if started && cues {
			o.deps.Cues.SignalReady()
		}
	} else {
		started = o.deps.Audio.TryStart(bindingID)
		if started && cues {
			o.deps.Cues.BeginOnDemand(o.deps.Audio.ApplyMute)
		}
	}

	if !started {
		slog.Warn("audio capture start failed", "binding", bindingID)
		return
	}

	// Registration goes through the same subsystem that delivered this
	// press; arm it from a fresh goroutine so the hook loop never waits
	// on itself.
	if cancels := o.deps.Cancels; cancels != nil {
		go func() {
			if err := cancels.RegisterCancel(cancelAccelerator); err != nil {
				slog.Warn("register cancel shortcut", "err", err)
			}
		}()
	}
}

// Stop ends recording and spawns the rest of the session. It returns to
// the shortcut handler immediately.
func (o *Orchestrator) Stop(bindingID, token string) {
	slog.Info("session stop", "binding", bindingID)

	if o.deps.Cancels != nil {
		o.deps.Cancels.UnregisterCancel()
	}

	settings := o.deps.Settings()
	p := resolvePlan(settings, token)

	// The audio-direct path supplies its own transcription, so skip the
	// local transcribing indicator.
	if p.mode == deliverAssistantAudio {
		o.deps.UI.SetTrayState(ui.StateAskingAssistant)
	} else {
		o.deps.UI.SetTrayState(ui.StateTranscribing)
	}
	o.deps.UI.HideOverlay()

	// Unmute before the stop cue so it is audible.
	o.deps.Audio.RemoveMute()
	if settings.AudioFeedback {
		o.deps.Cues.End()
	}

	gen := o.generation.Load()
	go o.finish(gen, bindingID, p, settings.ScreenshotMode)
}

// Cancel aborts whatever is in flight and forces idle. Safe from any
// state; results of already-issued calls are discarded on arrival.
func (o *Orchestrator) Cancel() {
	slog.Info("session cancel")

	o.generation.Add(1)
	o.deps.Audio.Cancel()
	if cancels := o.deps.Cancels; cancels != nil {
		go cancels.UnregisterCancel()
	}
	o.clearToggles()
	o.deps.UI.HideOverlay()
	o.deps.UI.SetTrayState(ui.StateIdle)
}

// finish is the spawned continuation of Stop.
func (o *Orchestrator) finish(gen uint64, bindingID string, p plan, shotMode types.ScreenshotMode) {
	// The toggle entry clears no matter how this unit of work exits.
	defer o.setToggle(bindingID, false)

	ctx := context.Background()

	var shot capture.Result
	if p.captureScreen {
		shot = o.deps.Capture(shotMode)
	}

	samples := o.deps.Audio.Stop(bindingID)
	if len(samples) == 0 {
		slog.Info("no samples captured", "binding", bindingID)
		o.idleReset(gen)
		return
	}

	// Settings may have changed since the press; the re-read snapshot
	// alone decides the branches below.
	settings := o.deps.Settings()

	if settings.AssistantAudioActive() {
		// The assistant transcribes the audio itself; history gets an
		// empty transcript placeholder.
		if o.current(gen) {
			o.deps.UI.SetTrayState(ui.StateAskingAssistant)
		}
		go o.saveHistory(samples, "", "", "")
		o.askAssistant(ctx, gen, settings, assistant.Request{
			Images:           imagesFrom(shot),
			FullScreenImages: shot.FullScreen,
			Audio:            samples,
			SampleRate:       o.deps.Audio.SampleRate(),
		})
		return
	}

	text, err := o.deps.Engine.Transcribe(ctx, samples, settings.SelectedLanguage)
	if err != nil {
		slog.Error("transcribe", "err", err)
		o.idleReset(gen)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		slog.Info("empty transcription")
		o.idleReset(gen)
		return
	}

	outcome := o.deps.Chain.Process(ctx, settings, text)

	var processed string
	if outcome.Kind != postprocess.None {
		processed = outcome.Text
	}
	go o.saveHistory(samples, text, processed, outcome.PromptUsed)

	if settings.AssistantActive() {
		if o.current(gen) {
			o.deps.UI.SetTrayState(ui.StateAskingAssistant)
		}
		o.askAssistant(ctx, gen, settings, assistant.Request{
			Text:             outcome.Text,
			Images:           imagesFrom(shot),
			FullScreenImages: shot.FullScreen,
		})
		return
	}

	o.deliver(gen, outcome.Text)
}

// deliver pastes final text from the UI-affined thread and resets to idle
// regardless of paste success.
func (o *Orchestrator) deliver(gen uint64, text string) {
	o.deps.RunOnMain(func() {
		if !o.current(gen) {
			return
		}
		if err := o.deps.Paste(text); err != nil {
			slog.Error("paste delivery", "err", err)
		}
	})
	o.idleReset(gen)
}

// askAssistant performs the assistant fork and owns UI teardown for it.
func (o *Orchestrator) askAssistant(ctx context.Context, gen uint64, settings config.Settings, req assistant.Request) {
	req.Model = settings.AssistantModel
	req.APIKey = settings.AssistantAPIKey
	req.History = o.deps.Conversation.History()

	resp, err := o.deps.Assistant.Ask(ctx, req)
	if err != nil {
		slog.Error("assistant dispatch", "err", err)
		o.idleReset(gen)
		return
	}

	// A response landing after Cancel is dropped before it can touch the
	// conversation log or the UI.
	if !o.current(gen) {
		slog.Debug("discarding assistant response from cancelled session")
		return
	}

	question := req.Text
	if question == "" {
		question = resp.Transcription
	}
	if question == "" {
		// Audio went up without a parseable transcription marker coming back.
		question = "Audio transcription"
	}
	if resp.Answer == "" {
		slog.Info("assistant returned empty answer")
		o.idleReset(gen)
		return
	}

	o.deps.Conversation.AddUserMessage(question)
	o.deps.Conversation.AddModelMessage(resp.Answer)

	o.deps.UI.SetTrayState(ui.StateAssistantReady)
	o.deps.UI.ShowPopup(FormatPopup(question, resp.Answer))
	o.deps.UI.SetTrayState(ui.StateIdle)
}

func (o *Orchestrator) idleReset(gen uint64) {
	if !o.current(gen) {
		return
	}
	o.deps.UI.HideOverlay()
	o.deps.UI.SetTrayState(ui.StateIdle)
}

func (o *Orchestrator) saveHistory(samples []float32, transcript, processed, promptUsed string) {
	if o.deps.History == nil {
		return
	}
	if _, err := o.deps.History.Save(samples, o.deps.Audio.SampleRate(), transcript, processed, promptUsed); err != nil {
		slog.Warn("save history", "err", err)
	}
}

func imagesFrom(shot capture.Result) [][]byte {
	if shot.Image == nil {
		return nil
	}
	return [][]byte{shot.Image}
}

// FormatPopup renders the assistant exchange as popup markdown.
func FormatPopup(question, answer string) string {
	return fmt.Sprintf("**Q:** %s\n\n**A:** %s", question, answer)
}

var _ shortcut.Handler = (*Orchestrator)(nil)
var _ shortcut.ToggleTable = (*Orchestrator)(nil)
