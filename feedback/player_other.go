//go:build !darwin

package feedback

import (
	"fmt"
	"os/exec"
)

func playFile(path string) error {
	if err := exec.Command("paplay", path).Run(); err == nil {
		return nil
	}
	if err := exec.Command("aplay", "-q", path).Run(); err != nil {
		return fmt.Errorf("aplay: %w", err)
	}
	return nil
}
