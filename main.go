package main

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.dicta.dev/dicta/assistant"
	"go.dicta.dev/dicta/audio"
	"go.dicta.dev/dicta/capture"
	"go.dicta.dev/dicta/config"
	"go.dicta.dev/dicta/deliver"
	"go.dicta.dev/dicta/feedback"
	"go.dicta.dev/dicta/history"
	"go.dicta.dev/dicta/internal/types"
	"go.dicta.dev/dicta/llm"
	"go.dicta.dev/dicta/postprocess"
	"go.dicta.dev/dicta/session"
	"go.dicta.dev/dicta/shortcut"
	"go.dicta.dev/dicta/stt"
	"go.dicta.dev/dicta/ui"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// App is the main application service bound to Wails.
type App struct {
	app    *application.App
	window application.Window

	store        *config.Store
	history      *history.Store
	conversation *assistant.Conversation
	recorder     *audio.Recorder
	listener     *shortcut.Listener
	orch         *session.Orchestrator
}

func NewApp() *App {
	return &App{}
}

// Init wires the service once the Wails app and windows exist.
func (a *App) Init(app *application.App, window application.Window) {
	a.app = app
	a.window = window
}

// Shutdown cleans up resources.
func (a *App) Shutdown() {
	if a.listener != nil {
		a.listener.Stop()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Error("close history store", "error", err)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Frontend bindings
// ─────────────────────────────────────────────────────────────────────────────

// GetSettings returns the current settings snapshot.
func (a *App) GetSettings() config.Settings {
	return a.store.Get()
}

// UpdateSettings replaces the settings document and persists it.
func (a *App) UpdateSettings(s config.Settings) error {
	return a.store.Update(func(cur *config.Settings) {
		*cur = s
	})
}

// ListHistory returns saved sessions, newest first.
func (a *App) ListHistory() ([]types.HistoryEntry, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.List()
}

// DeleteHistory removes one saved session.
func (a *App) DeleteHistory(id string) error {
	if a.history == nil {
		return nil
	}
	return a.history.Delete(id)
}

// ClearConversation empties the assistant exchange log.
func (a *App) ClearConversation() {
	a.conversation.Clear()
}

// Version reports build info.
func (a *App) Version() string {
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// ─────────────────────────────────────────────────────────────────────────────
// Transcription engine selection
// ─────────────────────────────────────────────────────────────────────────────

// engineSwitch picks the transcription engine from current settings on
// every call, so an engine change takes effect on the next session.
type engineSwitch struct {
	store *config.Store

	mu    sync.Mutex
	local *stt.Local
}

func newEngineSwitch(store *config.Store) *engineSwitch {
	return &engineSwitch{store: store}
}

func (e *engineSwitch) engine() stt.Engine {
	settings := e.store.Get()

	if settings.STTEngine == "whisper-api" && settings.STTAPIKey != "" {
		return stt.NewAPI(stt.APIConfig{
			APIKey:  settings.STTAPIKey,
			BaseURL: settings.STTBaseURL,
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.local == nil {
		local, err := stt.NewLocal(stt.LocalConfig{ModelSize: settings.STTModelSize})
		if err != nil {
			slog.Error("init local transcription", "error", err)
			return nil
		}
		e.local = local
	}
	return e.local
}

func (e *engineSwitch) InitiateLoad() {
	if eng := e.engine(); eng != nil {
		eng.InitiateLoad()
	}
}

func (e *engineSwitch) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	eng := e.engine()
	if eng == nil {
		return "", fmt.Errorf("no transcription engine available")
	}
	return eng.Transcribe(ctx, samples, language)
}

// ─────────────────────────────────────────────────────────────────────────────
// Main Entry
// ─────────────────────────────────────────────────────────────────────────────

func main() {
	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	appService := NewApp()

	store, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	appService.store = store

	dataDir, err := config.DataDir()
	if err != nil {
		slog.Error("resolve data dir", "error", err)
		os.Exit(1)
	}

	histStore, err := history.Open(filepath.Join(dataDir, "history"))
	if err != nil {
		slog.Error("open history store", "error", err)
	}
	appService.history = histStore

	backend, err := audio.NewBackend(audio.DefaultSampleRate)
	if err != nil {
		slog.Warn("audio backend unavailable", "error", err)
	}
	recorder := audio.NewRecorder(backend, audio.NewSystemMuter(), audio.DefaultSampleRate)
	appService.recorder = recorder

	cuesEnabled := func() bool { return store.Get().AudioFeedback }
	player, err := feedback.NewPlayer(filepath.Join(dataDir, "cues"), cuesEnabled)
	if err != nil {
		slog.Warn("init cue player", "error", err)
		player, err = feedback.NewPlayer(filepath.Join(os.TempDir(), "dicta-cues"), cuesEnabled)
		if err != nil {
			slog.Error("init cue player fallback", "error", err)
			os.Exit(1)
		}
	}

	conversation := assistant.NewConversation()
	appService.conversation = conversation

	app := application.New(application.Options{
		Name:        "Dicta",
		Description: "Hotkey-driven voice capture and dictation",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Keep running from the tray when all windows close.
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	mainWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "Dicta",
		Width:  900,
		Height: 640,
		URL:    "/?page=main",
		Mac: application.MacWindow{
			TitleBar: application.MacTitleBarHiddenInset,
		},
		Hidden: true,
	})
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		mainWindow.Hide()
	})

	overlayWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:         "Recording",
		Width:         220,
		Height:        64,
		URL:           "/?page=overlay",
		Frameless:     true,
		AlwaysOnTop:   true,
		DisableResize: true,
		Hidden:        true,
	})

	popupWindow := app.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:       "Assistant",
		Width:       480,
		Height:      420,
		URL:         "/?page=popup",
		AlwaysOnTop: true,
		Hidden:      true,
	})
	popupWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		popupWindow.Hide()
	})

	appService.Init(app, mainWindow)

	systemTray := app.SystemTray.New()
	icons := ui.TrayIcons()
	systemTray.SetIcon(icons[ui.StateIdle])

	notifier := ui.NewWailsNotifier(app, systemTray, overlayWindow, popupWindow, icons)

	// A typed nil in the interface field would defeat the orchestrator's
	// nil check, so leave History unset when the store failed to open.
	var histWriter session.HistoryWriter
	if histStore != nil {
		histWriter = histStore
	}

	orch := session.New(session.Deps{
		Audio:        recorder,
		Engine:       newEngineSwitch(store),
		Chain:        postprocess.NewChain(llm.NewOllama("")),
		Assistant:    assistant.NewClient(),
		Conversation: conversation,
		Capture:      capture.Take,
		History:      histWriter,
		UI:           notifier,
		Paste:        deliver.Paste,
		Cues:         feedback.NewSequencer(player),
		Settings:     store.Get,
		RunOnMain: func(fn func()) {
			application.InvokeAsync(fn)
		},
	})
	appService.orch = orch

	listener := shortcut.NewListener(orch, func() []types.Binding {
		return store.Get().Bindings
	}, orch)
	appService.listener = listener

	// The orchestrator arms its transient cancel shortcut through the
	// same listener that feeds it events.
	orch.SetCancelShortcuts(listener)

	go listener.Run()

	trayMenu := app.NewMenu()
	trayMenu.Add("Show Window").OnClick(func(ctx *application.Context) {
		mainWindow.Show()
		mainWindow.Focus()
	})
	trayMenu.Add("Clear Conversation").OnClick(func(ctx *application.Context) {
		conversation.Clear()
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			app.Quit()
		})
	systemTray.SetMenu(trayMenu)

	if err := app.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
