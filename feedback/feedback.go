// Package feedback plays the short audio cues around a recording session
// and coordinates their timing against the system mute.
package feedback

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"go.dicta.dev/dicta/audio"
)

// SoundType identifies one of the session cues.
type SoundType int

const (
	SoundStart SoundType = iota
	SoundReady
	SoundStop
)

func (t SoundType) String() string {
	switch t {
	case SoundStart:
		return "start"
	case SoundReady:
		return "ready"
	case SoundStop:
		return "stop"
	default:
		return "unknown"
	}
}

const cueSampleRate = 16000

// cue tone parameters, chosen to be short enough that the on-demand
// sequence stays well under half a second end to end.
var cueTones = map[SoundType]struct {
	freq float64
	ms   int
}{
	SoundStart: {880, 120},
	SoundReady: {1318, 80},
	SoundStop:  {660, 120},
}

// Player synthesizes the cue files once and plays them through the
// platform sound player. When the enabled supplier reports false, both
// Play and PlayBlocking return immediately; callers rely on that to keep
// the cue→mute ordering uniform whether or not cues are on.
type Player struct {
	paths   map[SoundType]string
	enabled func() bool
}

// NewPlayer writes the three cue WAV files under dir and returns a Player.
func NewPlayer(dir string, enabled func() bool) (*Player, error) {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cue dir: %w", err)
	}

	p := &Player{paths: make(map[SoundType]string, len(cueTones)), enabled: enabled}
	for t, tone := range cueTones {
		path := filepath.Join(dir, fmt.Sprintf("cue-%s.wav", t))
		data := audio.EncodeWAV(synthesizeTone(tone.freq, tone.ms), cueSampleRate)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("write cue %s: %w", t, err)
		}
		p.paths[t] = path
	}
	return p, nil
}

// Play starts cue playback without waiting for it to finish.
func (p *Player) Play(t SoundType) {
	if !p.enabled() {
		return
	}
	go p.run(t)
}

// PlayBlocking plays the cue and returns when playback has finished.
// Returns immediately when cues are disabled.
func (p *Player) PlayBlocking(t SoundType) {
	if !p.enabled() {
		return
	}
	p.run(t)
}

func (p *Player) run(t SoundType) {
	path, ok := p.paths[t]
	if !ok {
		return
	}
	if err := playFile(path); err != nil {
		slog.Warn("play feedback cue", "cue", t.String(), "error", err)
	}
}

// synthesizeTone renders a sine burst with a short linear fade on both
// ends so the cue doesn't click.
func synthesizeTone(freq float64, ms int) []float32 {
	n := cueSampleRate * ms / 1000
	fade := cueSampleRate * 5 / 1000 // 5 ms
	samples := make([]float32, n)
	for i := range samples {
		v := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/cueSampleRate)
		if i < fade {
			v *= float64(i) / float64(fade)
		}
		if n-i < fade {
			v *= float64(n-i) / float64(fade)
		}
		samples[i] = float32(v)
	}
	return samples
}
