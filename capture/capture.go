// Package capture grabs screen context for assistant requests. A precise
// active-window grab is attempted on platforms that support it, falling
// back to a full-display capture at each failure point.
package capture

import (
	"bytes"
	"image/png"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kbinani/screenshot"

	"go.dicta.dev/dicta/internal/types"
)

// Result is a finished capture. Image is nil when every capture path
// failed; that is not an error, the session proceeds without context.
type Result struct {
	Image      []byte
	FullScreen bool
}

// Take captures the screen according to mode.
func Take(mode types.ScreenshotMode) Result {
	if mode == types.ScreenshotActiveWindow {
		if img := captureActiveWindow(); img != nil {
			return Result{Image: img}
		}
	}
	return Result{Image: captureFullDisplay(), FullScreen: true}
}

// captureFullDisplay grabs the primary display as PNG bytes, or nil.
func captureFullDisplay() []byte {
	if screenshot.NumActiveDisplays() == 0 {
		slog.Warn("screen capture: no active displays")
		return nil
	}

	img, err := screenshot.CaptureDisplay(0)
	if err != nil {
		slog.Warn("screen capture", "err", err)
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		slog.Warn("encode screen capture", "err", err)
		return nil
	}
	return buf.Bytes()
}

// windowBounds is a window rectangle in screen coordinates.
type windowBounds struct {
	left, top, right, bottom int
}

func (b windowBounds) width() int  { return b.right - b.left }
func (b windowBounds) height() int { return b.bottom - b.top }

// parseWindowBounds parses an AppleScript list "{left, top, right, bottom}".
func parseWindowBounds(s string) (windowBounds, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return windowBounds{}, false
	}

	var vals [4]int
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return windowBounds{}, false
		}
		vals[i] = n
	}

	b := windowBounds{left: vals[0], top: vals[1], right: vals[2], bottom: vals[3]}
	if b.width() <= 0 || b.height() <= 0 {
		return windowBounds{}, false
	}
	return b, true
}
