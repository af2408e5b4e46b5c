package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

const iconSize = 22

// stateColors are the tray dot colors per session state.
var stateColors = map[TrayState]color.NRGBA{
	StateIdle:            {R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff},
	StateRecording:       {R: 0xe5, G: 0x39, B: 0x35, A: 0xff},
	StateTranscribing:    {R: 0xfb, G: 0x8c, B: 0x00, A: 0xff},
	StateAskingAssistant: {R: 0x1e, G: 0x88, B: 0xe5, A: 0xff},
	StateAssistantReady:  {R: 0x43, G: 0xa0, B: 0x47, A: 0xff},
}

// TrayIcons renders a PNG dot icon per state. Rendering at startup keeps
// binary assets out of the repository.
func TrayIcons() map[TrayState][]byte {
	icons := make(map[TrayState][]byte, len(stateColors))
	for state, c := range stateColors {
		icons[state] = renderDot(c)
	}
	return icons
}

func renderDot(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	cx, cy := iconSize/2, iconSize/2
	r := iconSize/2 - 3

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
