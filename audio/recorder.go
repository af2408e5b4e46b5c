package audio

import (
	"log/slog"
	"sync"
)

// Recorder owns microphone capture for at most one binding at a time.
// A second TryStart while a session is active is rejected here, not by
// the caller.
type Recorder struct {
	mu sync.Mutex

	backend    Backend
	muter      Muter
	sampleRate int

	activeBinding string
	recording     bool
	muted         bool
	samples       []float32
}

// NewRecorder creates a Recorder over the given backend and muter.
func NewRecorder(backend Backend, muter Muter, sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Recorder{backend: backend, muter: muter, sampleRate: sampleRate}
}

// SampleRate returns the capture rate in Hz.
func (r *Recorder) SampleRate() int { return r.sampleRate }

// TryStart begins capture for the binding. Returns false if another
// binding holds the recorder or the backend fails to start.
func (r *Recorder) TryStart(bindingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		slog.Debug("recorder busy", "active", r.activeBinding, "requested", bindingID)
		return false
	}
	if r.backend == nil {
		slog.Warn("no audio backend available")
		return false
	}

	r.samples = r.samples[:0]
	if err := r.backend.Start(r.append); err != nil {
		slog.Error("start audio capture", "binding", bindingID, "error", err)
		return false
	}

	r.recording = true
	r.activeBinding = bindingID
	slog.Info("recording started", "binding", bindingID)
	return true
}

// append runs on the capture thread; keep the critical section short.
func (r *Recorder) append(samples []float32) {
	r.mu.Lock()
	if r.recording {
		r.samples = append(r.samples, samples...)
	}
	r.mu.Unlock()
}

// Stop ends capture for the binding and returns the captured buffer.
// Returns nil if this binding is not the active one (capture never
// started, or was cancelled).
func (r *Recorder) Stop(bindingID string) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording || r.activeBinding != bindingID {
		return nil
	}

	if err := r.backend.Stop(); err != nil {
		slog.Error("stop audio capture", "binding", bindingID, "error", err)
	}
	r.recording = false
	r.activeBinding = ""

	out := make([]float32, len(r.samples))
	copy(out, r.samples)
	r.samples = r.samples[:0]
	slog.Info("recording stopped", "binding", bindingID, "samples", len(out))
	return out
}

// Cancel aborts any active capture and discards buffered samples.
// Safe to call when idle.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		if err := r.backend.Stop(); err != nil {
			slog.Error("stop audio capture on cancel", "error", err)
		}
		r.recording = false
		r.activeBinding = ""
		r.samples = r.samples[:0]
		slog.Info("recording cancelled")
	}
	r.unmuteLocked()
}

// ApplyMute engages the system output mute. Idempotent.
func (r *Recorder) ApplyMute() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.muted || r.muter == nil {
		return
	}
	if err := r.muter.Mute(); err != nil {
		slog.Warn("apply system mute", "error", err)
		return
	}
	r.muted = true
}

// RemoveMute releases the system output mute. Idempotent.
func (r *Recorder) RemoveMute() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unmuteLocked()
}

func (r *Recorder) unmuteLocked() {
	if !r.muted || r.muter == nil {
		return
	}
	if err := r.muter.Unmute(); err != nil {
		slog.Warn("remove system mute", "error", err)
		return
	}
	r.muted = false
}

// IsMuted reports whether the system output mute is currently engaged.
func (r *Recorder) IsMuted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}
