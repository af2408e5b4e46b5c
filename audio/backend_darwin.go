//go:build darwin

package audio

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework AVFoundation -framework CoreAudio -framework Foundation

#include <stdlib.h>

extern int startMicCapture(int targetSampleRate, char** errOut);
extern void stopMicCapture(void);
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

// Global handler for the CGO callback. Only one capture at a time.
var (
	globalHandler   Handler
	globalHandlerMu sync.RWMutex
)

//export goMicCallback
func goMicCallback(samples *C.float, count C.int) {
	n := int(count)
	if n <= 0 {
		return
	}

	globalHandlerMu.RLock()
	h := globalHandler
	globalHandlerMu.RUnlock()
	if h == nil {
		return
	}

	// The slice aliases C memory; the handler copies before returning.
	h(unsafe.Slice((*float32)(unsafe.Pointer(samples)), n))
}

// backend is the macOS microphone implementation using AVAudioEngine.
type backend struct {
	sampleRate int
	mu         sync.Mutex
	running    bool
}

// NewBackend creates a microphone capture backend for this platform.
func NewBackend(sampleRate int) (Backend, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &backend{sampleRate: sampleRate}, nil
}

func (b *backend) Start(handler Handler) error {
	if handler == nil {
		return errors.New("audio: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return ErrRunning
	}

	globalHandlerMu.Lock()
	globalHandler = handler
	globalHandlerMu.Unlock()

	var errStr *C.char
	if C.startMicCapture(C.int(b.sampleRate), &errStr) != 0 {
		globalHandlerMu.Lock()
		globalHandler = nil
		globalHandlerMu.Unlock()

		if errStr != nil {
			err := errors.New(C.GoString(errStr))
			C.free(unsafe.Pointer(errStr))
			return err
		}
		return errors.New("audio: unknown capture error")
	}

	b.running = true
	return nil
}

func (b *backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}

	C.stopMicCapture()

	globalHandlerMu.Lock()
	globalHandler = nil
	globalHandlerMu.Unlock()

	b.running = false
	return nil
}
