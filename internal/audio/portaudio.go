//go:build cgo

package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// PortAudioAvailable reports whether this build can capture via PortAudio.
const PortAudioAvailable = true

// NewPortAudioSource creates a source reading the default input device.
func NewPortAudioSource(framesPerBuffer int, vad *VADDetector) *Source {
	return NewSource("portaudio", portAudioOpener(framesPerBuffer), vad)
}

func portAudioOpener(framesPerBuffer int) Opener {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	return func(ctx context.Context) (Capture, error) {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
		}

		buf := make([]int16, framesPerBuffer)
		stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(SampleRate), len(buf), buf)
		if err != nil {
			_ = portaudio.Terminate()
			return nil, fmt.Errorf("failed to open default input stream: %w", err)
		}
		if err := stream.Start(); err != nil {
			_ = stream.Close()
			_ = portaudio.Terminate()
			return nil, fmt.Errorf("failed to start input stream: %w", err)
		}

		return &portAudioCapture{stream: stream, buf: buf}, nil
	}
}

// portAudioCapture reads blocking frames from a PortAudio stream. The
// stream is only touched from the reading goroutine and Release, which
// runs after reads stopped.
type portAudioCapture struct {
	stream      *portaudio.Stream
	buf         []int16
	interrupted atomic.Bool
	releaseOnce sync.Once
}

func (c *portAudioCapture) ReadFrame() ([]byte, error) {
	if c.interrupted.Load() {
		return nil, io.EOF
	}
	if err := c.stream.Read(); err != nil {
		if c.interrupted.Load() {
			return nil, io.EOF
		}
		// overflow only means samples were lost; keep capturing
		if err == portaudio.InputOverflowed {
			return SamplesToBytes(c.buf), nil
		}
		return nil, fmt.Errorf("failed to read input stream: %w", err)
	}
	return SamplesToBytes(c.buf), nil
}

func (c *portAudioCapture) Interrupt() {
	c.interrupted.Store(true)
}

func (c *portAudioCapture) Release() error {
	var err error
	c.releaseOnce.Do(func() {
		if stopErr := c.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop input stream: %w", stopErr)
		}
		if closeErr := c.stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close input stream: %w", closeErr)
		}
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = fmt.Errorf("failed to terminate portaudio: %w", termErr)
		}
	})
	return err
}

// InputDevice describes a capture device for diagnostics.
type InputDevice struct {
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListInputDevices returns the devices PortAudio can capture from.
func ListInputDevices() ([]InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []InputDevice
	for _, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		hostAPI := ""
		if d.HostApi != nil {
			hostAPI = d.HostApi.Name
		}
		out = append(out, InputDevice{
			Name:              d.Name,
			HostAPI:           hostAPI,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           def != nil && d.Name == def.Name,
		})
	}
	return out, nil
}
