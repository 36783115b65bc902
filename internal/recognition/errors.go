package recognition

import (
	"errors"

	"github.com/lexiqai/voice-typer/internal/stt"
)

var (
	// ErrConnectionTimeout is matched by errors.Is when the transcription
	// stream did not connect in time.
	ErrConnectionTimeout = stt.ErrConnectionTimeout

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("recognizer is closed")
)

// StreamError is a failure of the transcription stream, either while
// opening or during a session.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return "transcription stream " + e.Op + ": " + e.Err.Error()
}

func (e *StreamError) Unwrap() error { return e.Err }

// SourceError is a failure of audio capture.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return "audio source: " + e.Err.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }

// ActuatorError is a failed output action. It does not end the session.
type ActuatorError struct {
	Action string
	Err    error
}

func (e *ActuatorError) Error() string {
	return "output action " + e.Action + ": " + e.Err.Error()
}

func (e *ActuatorError) Unwrap() error { return e.Err }

// ConfigError reports settings a session cannot start with.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// errorKind names an error for metrics and notifications.
func errorKind(err error) string {
	var (
		streamErr   *StreamError
		sourceErr   *SourceError
		actuatorErr *ActuatorError
		configErr   *ConfigError
	)
	switch {
	case errors.Is(err, ErrConnectionTimeout):
		return "connection_timeout"
	case errors.As(err, &streamErr):
		return "stream"
	case errors.As(err, &sourceErr):
		return "source"
	case errors.As(err, &actuatorErr):
		return "actuator"
	case errors.As(err, &configErr):
		return "config"
	default:
		return "internal"
	}
}
