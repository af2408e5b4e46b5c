//go:build darwin

package feedback

import (
	"fmt"
	"os/exec"
)

func playFile(path string) error {
	if err := exec.Command("afplay", path).Run(); err != nil {
		return fmt.Errorf("afplay: %w", err)
	}
	return nil
}
