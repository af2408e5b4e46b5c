//go:build !darwin

package capture

// Precise window capture is not implemented here; the caller falls back
// to a full-display grab.
func captureActiveWindow() []byte {
	return nil
}
