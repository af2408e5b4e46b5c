// Package deliver injects finished text into the frontmost application by
// placing it on the clipboard and synthesizing a paste keystroke.
package deliver

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Paste puts text on the clipboard and sends the platform paste chord.
// Must run on the UI-affined thread on platforms that require it.
func Paste(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	if err := sendPasteKeystroke(); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}
	return nil
}
