//go:build !darwin

package deliver

import "os/exec"

func sendPasteKeystroke() error {
	return exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+v").Run()
}
