package capture

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Position and size are queried separately; bounds is not available for
// all windows.
const windowBoundsScript = `
tell application "System Events"
	try
		set frontApp to first application process whose frontmost is true
		set frontWindow to missing value
		try
			set frontWindow to front window of frontApp
		on error
			try
				set frontWindow to first window of frontApp
			on error
				set frontWindow to window 1 of frontApp
			end try
		end try
		if frontWindow is missing value then
			return "ERROR: No window found"
		end if
		set windowPosition to position of frontWindow
		set windowSize to size of frontWindow
		set x to item 1 of windowPosition
		set y to item 2 of windowPosition
		set w to item 1 of windowSize
		set h to item 2 of windowSize
		return {x, y, x + w, y + h}
	on error errorMessage
		return "ERROR: " & errorMessage
	end try
end tell
`

// captureActiveWindow grabs the frontmost window as PNG bytes, or nil when
// any step fails.
func captureActiveWindow() []byte {
	out, err := exec.Command("osascript", "-e", windowBoundsScript).Output()
	if err != nil {
		slog.Warn("query window bounds", "err", err)
		return nil
	}

	reply := strings.TrimSpace(string(out))
	if strings.HasPrefix(reply, "ERROR:") {
		slog.Warn("query window bounds", "reply", reply)
		return nil
	}

	bounds, ok := parseWindowBounds(reply)
	if !ok {
		slog.Warn("invalid window bounds", "reply", reply)
		return nil
	}

	path := filepath.Join(os.TempDir(), fmt.Sprintf("dicta_capture_%d.png", os.Getpid()))
	defer os.Remove(path)

	region := fmt.Sprintf("-R%d,%d,%d,%d", bounds.left, bounds.top, bounds.width(), bounds.height())
	if err := exec.Command("screencapture", "-x", region, "-t", "png", path).Run(); err != nil {
		slog.Warn("region capture", "err", err)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("read region capture", "err", err)
		return nil
	}
	return data
}
