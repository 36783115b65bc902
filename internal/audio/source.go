package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/observability"
)

const eventBufferSize = 64

// EventKind identifies what a source event carries.
type EventKind int

const (
	EventFrame EventKind = iota
	EventStarted
	EventStopped
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventFrame:
		return "frame"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered on a source's event channel.
type Event struct {
	Kind  EventKind
	Frame []byte
	Err   error
}

// Capture is one open capture device or process.
type Capture interface {
	// ReadFrame blocks for the next frame of PCM audio. It returns io.EOF
	// once the capture has been interrupted.
	ReadFrame() ([]byte, error)
	// Interrupt makes a pending or later ReadFrame return promptly.
	Interrupt()
	// Release frees the device. It is called once, after reads stopped.
	Release() error
}

// Opener opens a capture for a new activation of a Source.
type Opener func(ctx context.Context) (Capture, error)

type run struct {
	capture  Capture
	events   chan Event
	done     chan struct{}
	stop     chan struct{}
	stopping atomic.Bool
}

// Source turns a Capture into the microphone contract the recognizer
// consumes: idempotent Start/Stop and a channel of frame and lifecycle
// events. Frames are dropped rather than blocking capture when the
// consumer falls behind.
type Source struct {
	name   string
	open   Opener
	vad    *VADDetector
	logger zerolog.Logger

	mu     sync.Mutex
	active bool
	cur    *run
}

// NewSource creates a source. vad may be nil to skip level tracking.
func NewSource(name string, open Opener, vad *VADDetector) *Source {
	return &Source{
		name:   name,
		open:   open,
		vad:    vad,
		logger: observability.Component("audio").With().Str("backend", name).Logger(),
	}
}

// Name returns the backend name.
func (s *Source) Name() string {
	return s.name
}

// Start opens the capture and begins delivering frames. Starting an
// active source only logs a warning.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		s.logger.Warn().Msg("Audio capture already active")
		return nil
	}

	capture, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to start %s capture: %w", s.name, err)
	}

	r := &run{
		capture: capture,
		events:  make(chan Event, eventBufferSize),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	if s.vad != nil {
		s.vad.Reset()
	}
	s.cur = r
	s.active = true

	r.events <- Event{Kind: EventStarted}
	go s.capture(r)

	s.logger.Info().Int("sample_rate", SampleRate).Msg("Audio capture started")
	return nil
}

// Stop ends capture and releases the device. Stopping an inactive source
// is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		s.logger.Debug().Msg("Audio capture not active")
		return nil
	}
	r := s.cur
	s.active = false

	r.stopping.Store(true)
	close(r.stop)
	r.capture.Interrupt()
	<-r.done
	err := r.capture.Release()

	select {
	case r.events <- Event{Kind: EventStopped}:
	default:
	}

	if err != nil {
		s.logger.Warn().Err(err).Msg("Audio capture stopped with error")
		return fmt.Errorf("failed to stop %s capture: %w", s.name, err)
	}
	s.logger.Info().Msg("Audio capture stopped")
	return nil
}

// Events returns the event channel of the current activation, or nil if
// the source was never started. The channel is not closed.
func (s *Source) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.events
}

// Active reports whether capture is running.
func (s *Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Source) capture(r *run) {
	defer close(r.done)

	for {
		frame, err := r.capture.ReadFrame()
		if len(frame) > 0 && !r.stopping.Load() {
			s.observe(frame)
			select {
			case r.events <- Event{Kind: EventFrame, Frame: frame}:
			default:
				observability.RecordDroppedFrame()
			}
		}
		if err == nil {
			continue
		}

		if r.stopping.Load() {
			return
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("capture ended unexpectedly")
		}
		observability.RecordError("capture", "audio")
		s.logger.Error().Err(err).Msg("Audio capture failed")

		// unlike frames, an error waits for the consumer until Stop
		select {
		case r.events <- Event{Kind: EventError, Err: err}:
		case <-r.stop:
		}
		return
	}
}

func (s *Source) observe(frame []byte) {
	if s.vad == nil {
		return
	}
	a := s.vad.ProcessFrame(frame)
	observability.SetInputLevel(a.RMS)
	if a.Started {
		observability.IncrementSpeechSegments()
		s.logger.Debug().Float64("rms", a.RMS).Msg("Speech activity started")
	}
	if a.Ended {
		s.logger.Debug().Msg("Speech activity ended")
	}
}
