//go:build !darwin

package audio

import (
	"fmt"
	"os/exec"
)

type systemMuter struct{}

// NewSystemMuter returns a Muter driving the default PulseAudio sink.
func NewSystemMuter() Muter { return systemMuter{} }

func (systemMuter) Mute() error   { return setSinkMuted("1") }
func (systemMuter) Unmute() error { return setSinkMuted("0") }

func setSinkMuted(flag string) error {
	if out, err := exec.Command("pactl", "set-sink-mute", "@DEFAULT_SINK@", flag).CombinedOutput(); err != nil {
		return fmt.Errorf("pactl set-sink-mute: %w (%s)", err, out)
	}
	return nil
}
