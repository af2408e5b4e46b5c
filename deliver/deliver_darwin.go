package deliver

import "os/exec"

func sendPasteKeystroke() error {
	return exec.Command("osascript", "-e", `tell application "System Events" to keystroke "v" using command down`).Run()
}
