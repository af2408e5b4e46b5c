// Package stt provides the transcription engine contract and its local
// and API-backed implementations.
package stt

import (
	"context"
	"errors"
)

// ErrNotReady is returned when transcription is attempted before the
// engine has finished loading its model.
var ErrNotReady = errors.New("stt: engine not ready")

// Engine converts a captured sample buffer into text. Failures are
// recoverable: the session logs them and resets to idle.
type Engine interface {
	// InitiateLoad kicks off model loading in the background. It never
	// blocks; the session calls it at recording start so the model warms
	// up while the user is still speaking.
	InitiateLoad()

	// Transcribe converts PCM float32 samples at 16 kHz into text.
	// language may be empty for auto-detection.
	Transcribe(ctx context.Context, samples []float32, language string) (string, error)
}
