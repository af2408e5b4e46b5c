package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.dicta.dev/dicta/audio"
)

// Local transcribes with an installed whisper.cpp binary. The model file
// is downloaded lazily on the first InitiateLoad.
type Local struct {
	modelSize string
	modelPath string
	binPath   string

	mu      sync.Mutex
	loading bool
	ready   bool
}

// LocalConfig holds configuration for the local engine.
type LocalConfig struct {
	ModelSize string // "tiny", "base", "small", "medium", "large"
	ModelDir  string // defaults to ~/.dicta/models
	BinPath   string // optional explicit whisper.cpp binary path
}

var modelURLs = map[string]string{
	"tiny":   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin",
	"base":   "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.bin",
	"small":  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-small.bin",
	"medium": "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-medium.bin",
	"large":  "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3.bin",
}

// NewLocal creates a local whisper.cpp engine.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.ModelSize == "" {
		cfg.ModelSize = "base"
	}
	if _, ok := modelURLs[cfg.ModelSize]; !ok {
		return nil, fmt.Errorf("invalid model size: %s", cfg.ModelSize)
	}
	if cfg.ModelDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(homeDir, ".dicta", "models")
	}

	l := &Local{
		modelSize: cfg.ModelSize,
		modelPath: filepath.Join(cfg.ModelDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize)),
		binPath:   cfg.BinPath,
	}
	if l.binPath == "" {
		l.binPath = findWhisperBinary()
	}
	if _, err := os.Stat(l.modelPath); err == nil && l.binPath != "" {
		l.ready = true
	}
	return l, nil
}

// InitiateLoad starts the model download in the background if needed.
// Overlaps with recording so the model is usually ready by stop time.
func (l *Local) InitiateLoad() {
	l.mu.Lock()
	if l.ready || l.loading {
		l.mu.Unlock()
		return
	}
	l.loading = true
	l.mu.Unlock()

	go func() {
		err := l.ensureModel()
		l.mu.Lock()
		l.loading = false
		l.ready = err == nil && l.binPath != ""
		l.mu.Unlock()
		if err != nil {
			slog.Error("load whisper model", "size", l.modelSize, "error", err)
		}
	}()
}

// IsReady reports whether the binary and model are both available.
func (l *Local) IsReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// Transcribe runs whisper.cpp over the samples. Blocks while a pending
// load finishes, up to the context deadline.
func (l *Local) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	if err := l.waitReady(ctx); err != nil {
		return "", err
	}

	wavPath := filepath.Join(os.TempDir(), fmt.Sprintf("dicta_audio_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(wavPath, audio.EncodeWAV(samples, audio.DefaultSampleRate), 0644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(wavPath)

	args := []string{"-m", l.modelPath, "-f", wavPath, "-oj", "--no-prints"}
	if language != "" && language != "auto" {
		args = append(args, "-l", normalizeLanguage(language))
	}

	cmd := exec.CommandContext(ctx, l.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp: %w, stderr: %s", err, stderr.String())
	}

	var out whisperOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		// Older builds print plain text without -oj support.
		return strings.TrimSpace(stdout.String()), nil
	}

	var sb strings.Builder
	for _, seg := range out.Transcription {
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (l *Local) waitReady(ctx context.Context) error {
	for {
		l.mu.Lock()
		ready, loading := l.ready, l.loading
		l.mu.Unlock()
		if ready {
			return nil
		}
		if !loading {
			return ErrNotReady
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (l *Local) ensureModel() error {
	if _, err := os.Stat(l.modelPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.modelPath), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	url := modelURLs[l.modelSize]
	slog.Info("downloading whisper model", "size", l.modelSize, "url", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model: status %d", resp.StatusCode)
	}

	tmpPath := l.modelPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmpPath)

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	return os.Rename(tmpPath, l.modelPath)
}

// normalizeLanguage maps BCP-47 script variants to whisper language codes.
func normalizeLanguage(lang string) string {
	if lang == "zh-Hans" || lang == "zh-Hant" {
		return "zh"
	}
	return lang
}

func findWhisperBinary() string {
	// whisper-cli is the Homebrew name; main is the in-tree build name.
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "whisper.cpp"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	if runtime.GOOS == "darwin" {
		execPath, _ := os.Executable()
		bundlePath := filepath.Join(filepath.Dir(execPath), "..", "Resources", "whisper-cpp")
		if _, err := os.Stat(bundlePath); err == nil {
			return bundlePath
		}
	}
	return ""
}

// whisperOutput is the -oj JSON document whisper.cpp writes to stdout.
type whisperOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}
