//go:build !cgo

package audio

import (
	"context"
	"errors"
)

// PortAudioAvailable reports whether this build can capture via PortAudio.
const PortAudioAvailable = false

var errNoPortAudio = errors.New("portaudio capture requires a cgo build; use AUDIO_BACKEND=ffmpeg")

// NewPortAudioSource returns a source whose Start always fails in builds
// without cgo.
func NewPortAudioSource(framesPerBuffer int, vad *VADDetector) *Source {
	return NewSource("portaudio", func(ctx context.Context) (Capture, error) {
		return nil, errNoPortAudio
	}, vad)
}

// InputDevice describes a capture device for diagnostics.
type InputDevice struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListInputDevices is unavailable without cgo.
func ListInputDevices() ([]InputDevice, error) {
	return nil, errNoPortAudio
}
