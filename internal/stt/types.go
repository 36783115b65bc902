package stt

import (
	"errors"
)

// ErrConnectionTimeout is returned by Open when the stream does not connect
// within the configured timeout.
var ErrConnectionTimeout = errors.New("transcription stream connection timeout")

// ErrAlreadyOpen is returned by Open while a previous stream is still open.
var ErrAlreadyOpen = errors.New("transcription stream is already open")

// Audio format sent to the service. Capture always produces this format.
const (
	Encoding   = "linear16"
	SampleRate = 16000
	Channels   = 1
)

// TranscriptEvent is one recognition result.
type TranscriptEvent struct {
	// Text is the transcribed text
	Text string

	// IsFinal is true once the service will not revise this segment
	IsFinal bool

	// Confidence is the confidence score (0.0 to 1.0) if available
	Confidence float64

	// Start and Duration locate the segment in the stream, in seconds
	Start    float64
	Duration float64
}

// Event is delivered on a stream's event channel: a transcript, or a
// failure of the connection (Err set).
type Event struct {
	Transcript TranscriptEvent
	Err        error
}

// StreamConfig configures one transcription session.
type StreamConfig struct {
	APIKey         string
	Model          string
	Language       string
	Punctuate      bool
	InterimResults bool
	EndpointingMs  int
	SmartFormat    bool
}
