//go:build !darwin

package audio

// NewBackend returns ErrUnsupported on platforms without a capture
// implementation. The session layer treats a failed capture start as a
// logged no-op, so the app still runs (settings, history) without a mic.
func NewBackend(sampleRate int) (Backend, error) {
	return nil, ErrUnsupported
}
