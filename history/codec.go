package history

import (
	"encoding/binary"
	"fmt"

	opuscodec "github.com/jj11hh/opus"
)

// maxPacketSize is the largest opus packet the encoder may produce.
const maxPacketSize = 1275

// frameDuration is 20 ms, expressed as frames per second.
const framesPerSecond = 50

// compressAudio encodes mono samples into a sequence of length-prefixed
// opus packets, one per 20 ms frame. The final frame is zero-padded.
func compressAudio(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	enc, err := opuscodec.NewEncoder(sampleRate, 1, opuscodec.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	frameSize := sampleRate / framesPerSecond
	packet := make([]byte, maxPacketSize)
	frame := make([]float32, frameSize)

	var out []byte
	for off := 0; off < len(samples); off += frameSize {
		n := copy(frame, samples[off:])
		for i := n; i < frameSize; i++ {
			frame[i] = 0
		}

		written, err := enc.EncodeFloat32(frame, packet)
		if err != nil {
			return nil, fmt.Errorf("opus encode: %w", err)
		}

		out = binary.LittleEndian.AppendUint16(out, uint16(written))
		out = append(out, packet[:written]...)
	}
	return out, nil
}

// decompressAudio decodes a packet sequence produced by compressAudio.
func decompressAudio(data []byte, sampleRate int) ([]float32, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec, err := opuscodec.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}

	frameSize := sampleRate / framesPerSecond
	pcm := make([]float32, frameSize)

	var out []float32
	for len(data) > 0 {
		if len(data) < 2 {
			return nil, fmt.Errorf("truncated packet length prefix")
		}
		size := int(binary.LittleEndian.Uint16(data))
		data = data[2:]
		if size > len(data) {
			return nil, fmt.Errorf("truncated packet: want %d bytes, have %d", size, len(data))
		}

		n, err := dec.DecodeFloat32(data[:size], pcm)
		if err != nil {
			return nil, fmt.Errorf("opus decode: %w", err)
		}
		out = append(out, pcm[:n]...)
		data = data[size:]
	}
	return out, nil
}
