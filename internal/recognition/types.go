package recognition

import (
	"context"
	"errors"
	"time"

	"github.com/lexiqai/voice-typer/internal/audio"
	"github.com/lexiqai/voice-typer/internal/keyboard"
	"github.com/lexiqai/voice-typer/internal/stt"
)

// State is the recognizer lifecycle state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// NotificationKind identifies a notification.
type NotificationKind string

const (
	NotifyStarted     NotificationKind = "started"
	NotifyStopped     NotificationKind = "stopped"
	NotifyStateChange NotificationKind = "stateChange"
	NotifyInterim     NotificationKind = "interim"
	NotifyText        NotificationKind = "text"
	NotifyCommand     NotificationKind = "command"
	NotifyError       NotificationKind = "error"
)

// Notification is delivered to the Observer. Only the fields relevant to
// Kind are set.
type Notification struct {
	Kind      NotificationKind
	SessionID string
	Time      time.Time

	// stateChange
	Old State
	New State

	// interim, text, command (original utterance)
	Text string

	// command
	Action string

	// error
	Err error
}

// Observer receives notifications in emission order. Notify is called
// synchronously and must not block or call back into the Orchestrator.
type Observer interface {
	Notify(n Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) Notify(n Notification) { f(n) }

// Observers fans a notification out to several observers in order.
type Observers []Observer

func (o Observers) Notify(n Notification) {
	for _, obs := range o {
		if obs != nil {
			obs.Notify(n)
		}
	}
}

// AudioSource is the microphone contract.
type AudioSource interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan audio.Event
}

// TranscriptionStream is the speech-to-text contract.
type TranscriptionStream interface {
	Open(ctx context.Context, cfg stt.StreamConfig) error
	Send(frame []byte)
	Close() error
	Connected() bool
	Events() <-chan stt.Event
}

// Actuator is the output contract.
type Actuator interface {
	Execute(ctx context.Context, action keyboard.Action) error
	SetTypingDelay(d time.Duration)
}

// Settings is the orchestrator's view of the configuration.
type Settings struct {
	Stream        stt.StreamConfig
	VoiceCommands bool
	TypingDelay   time.Duration
}

func (s Settings) validate() error {
	switch {
	case s.Stream.APIKey == "":
		return &ConfigError{Err: errors.New("missing transcription API key")}
	case s.Stream.Model == "":
		return &ConfigError{Err: errors.New("missing transcription model")}
	case s.Stream.Language == "":
		return &ConfigError{Err: errors.New("missing recognition language")}
	case s.TypingDelay < 0:
		return &ConfigError{Err: errors.New("typing delay must not be negative")}
	}
	return nil
}
