//go:build darwin

package audio

import (
	"fmt"
	"os/exec"
)

type systemMuter struct{}

// NewSystemMuter returns a Muter driving the system output volume.
func NewSystemMuter() Muter { return systemMuter{} }

func (systemMuter) Mute() error   { return setOutputMuted(true) }
func (systemMuter) Unmute() error { return setOutputMuted(false) }

func setOutputMuted(muted bool) error {
	script := fmt.Sprintf("set volume output muted %t", muted)
	if out, err := exec.Command("osascript", "-e", script).CombinedOutput(); err != nil {
		return fmt.Errorf("osascript set volume: %w (%s)", err, out)
	}
	return nil
}
