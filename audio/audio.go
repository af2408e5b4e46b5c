// Package audio provides microphone capture, system mute control, and the
// WAV encoding shared by the feedback, transcription, and assistant layers.
package audio

import "errors"

// DefaultSampleRate is the capture rate used throughout the app.
// Whisper-family models expect 16 kHz mono.
const DefaultSampleRate = 16000

var (
	// ErrUnsupported is returned when no capture backend exists for this platform.
	ErrUnsupported = errors.New("audio: capture not supported on this platform")

	// ErrRunning is returned when starting a backend that is already capturing.
	ErrRunning = errors.New("audio: capture already running")
)

// Handler receives PCM float32 samples in the range [-1, 1].
type Handler func(samples []float32)

// Backend is a platform microphone capture implementation.
type Backend interface {
	Start(handler Handler) error
	Stop() error
}

// Muter controls the system output mute used to keep feedback cues out of
// the microphone while recording.
type Muter interface {
	Mute() error
	Unmute() error
}
