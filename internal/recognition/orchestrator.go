package recognition

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/commands"
	"github.com/lexiqai/voice-typer/internal/observability"
)

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Source   AudioSource
	Stream   TranscriptionStream
	Actuator Actuator
	Matcher  *commands.Matcher
	Observer Observer
}

// Orchestrator owns the recognition state machine. It opens the
// transcription stream, starts the audio source, forwards frames, and turns
// final transcripts into output actions.
//
// Start, Stop, Toggle and Close may be called from any goroutine; they are
// serialized against each other.
type Orchestrator struct {
	source   AudioSource
	stream   TranscriptionStream
	actuator Actuator
	matcher  *commands.Matcher
	observer Observer
	logger   zerolog.Logger

	// opMu serializes lifecycle operations and error cleanup.
	opMu sync.Mutex
	// emitMu orders notifications and keeps a state change and its
	// notification together.
	emitMu sync.Mutex
	// outputMu allows one output action at a time across sessions.
	outputMu sync.Mutex

	mu          sync.Mutex
	state       State
	settings    Settings
	current     *session
	lastInterim string
	closed      bool
}

// NewOrchestrator creates an Idle orchestrator.
func NewOrchestrator(deps Deps, settings Settings) *Orchestrator {
	matcher := deps.Matcher
	if matcher == nil {
		matcher = commands.NewMatcher(commands.NewDefaultTable())
	}
	observability.SetRecognizerState(int(StateIdle))

	return &Orchestrator{
		source:   deps.Source,
		stream:   deps.Stream,
		actuator: deps.Actuator,
		matcher:  matcher,
		observer: deps.Observer,
		logger:   observability.Component("recognizer"),
		state:    StateIdle,
		settings: settings,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastInterim returns the latest interim transcript of the running
// session, or "" once it was finalized.
func (o *Orchestrator) LastInterim() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastInterim
}

// Settings returns the settings the next session will start with.
func (o *Orchestrator) Settings() Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.settings
}

// Matcher returns the command matcher.
func (o *Orchestrator) Matcher() *commands.Matcher {
	return o.matcher
}

// UpdateSettings replaces the settings. Stream settings and the voice
// command switch apply from the next Start; the typing delay applies at
// once.
func (o *Orchestrator) UpdateSettings(s Settings) {
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()

	if o.actuator != nil {
		o.actuator.SetTypingDelay(s.TypingDelay)
	}
}

// Start opens the transcription stream and then starts the audio source.
// Start while Listening is a no-op. A failure is returned and also
// delivered to the Observer as an error notification.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	closed, state, settings, leftover := o.closed, o.state, o.settings, o.current
	o.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if state == StateListening {
		o.logger.Warn().Msg("Start requested while already listening")
		return nil
	}

	if err := settings.validate(); err != nil {
		o.logger.Error().Err(err).Msg("Cannot start recognition")
		observability.RecordSessionFailure("config_error")
		observability.RecordError(errorKind(err), "recognizer")
		o.emit(Notification{Kind: NotifyError, Err: err})
		return err
	}

	// A session that failed may still be waiting for its cleanup.
	if leftover != nil {
		o.teardown(leftover)
		o.setCurrent(nil)
	}

	openStart := time.Now()
	if err := o.stream.Open(ctx, settings.Stream); err != nil {
		serr := &StreamError{Op: "open", Err: err}
		o.logger.Error().Err(err).Dur("elapsed", time.Since(openStart)).Msg("Failed to open transcription stream")
		observability.RecordSessionFailure(errorKind(serr))
		observability.RecordError(errorKind(serr), "stream")
		o.transition(StateIdle, "")
		o.emit(Notification{Kind: NotifyError, Err: serr})
		return serr
	}

	s := newSession(settings)
	if err := o.source.Start(s.ctx); err != nil {
		s.cancel()
		if cerr := o.stream.Close(); cerr != nil {
			o.logger.Warn().Err(cerr).Msg("Failed to close transcription stream after source failure")
		}
		serr := &SourceError{Err: err}
		o.logger.Error().Err(err).Msg("Failed to start audio source")
		observability.RecordSessionFailure(errorKind(serr))
		observability.RecordError(errorKind(serr), "source")
		o.transition(StateError, "")
		o.emit(Notification{Kind: NotifyError, Err: serr})
		return serr
	}

	s.audio = o.source.Events()
	s.transcripts = o.stream.Events()
	o.setCurrent(s)

	go o.pump(s)
	go o.runOutput(s)

	o.mu.Lock()
	o.lastInterim = ""
	o.mu.Unlock()

	s.metrics.RecordSessionStart()
	o.transition(StateListening, s.id)
	o.emit(Notification{Kind: NotifyStarted, SessionID: s.id})
	close(s.ready)

	s.logger.Info().
		Str("model", settings.Stream.Model).
		Str("language", settings.Stream.Language).
		Bool("voice_commands", settings.VoiceCommands).
		Msg("Recognition started")
	return nil
}

// Stop ends the session: it stops the audio source, closes the
// transcription stream and discards the utterance buffer. Stop while Idle
// is a no-op. Failures while releasing resources are logged.
func (o *Orchestrator) Stop() {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.stop()
}

func (o *Orchestrator) stop() {
	o.mu.Lock()
	s, state := o.current, o.state
	o.mu.Unlock()

	if s == nil && state == StateIdle {
		o.logger.Info().Msg("Stop requested while idle")
		return
	}

	sessionID := ""
	if s != nil {
		sessionID = s.id
		o.teardown(s)
		o.setCurrent(nil)
	}

	o.mu.Lock()
	o.lastInterim = ""
	o.mu.Unlock()

	o.transition(StateIdle, sessionID)
	o.emit(Notification{Kind: NotifyStopped, SessionID: sessionID})
	o.logger.Info().Str("session_id", sessionID).Msg("Recognition stopped")
}

// Toggle starts recognition when Idle or in Error, and stops it otherwise.
func (o *Orchestrator) Toggle(ctx context.Context) error {
	if o.State() == StateListening {
		o.Stop()
		return nil
	}
	return o.Start(ctx)
}

// Close stops recognition and rejects later Start calls.
func (o *Orchestrator) Close() error {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.stop()
	return nil
}

// teardown releases the resources of s. The caller holds opMu.
func (o *Orchestrator) teardown(s *session) {
	s.cancel()
	<-s.done
	// An action already running finishes; none starts after this.
	<-s.workerDone

	if err := o.source.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to stop audio source")
	}
	if err := o.stream.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close transcription stream")
	}
	s.buffer.Reset()
	s.metrics.RecordSessionEnd()
}

// fail moves a Listening session to Error and schedules its cleanup. It is
// called from the session's pump.
func (o *Orchestrator) fail(s *session, err error) {
	o.emitMu.Lock()
	o.mu.Lock()
	if o.current != s || o.state != StateListening {
		o.mu.Unlock()
		o.emitMu.Unlock()
		s.logger.Debug().Err(err).Msg("Ignoring failure of inactive session")
		return
	}
	o.state = StateError
	o.mu.Unlock()

	observability.SetRecognizerState(int(StateError))
	o.notifyLocked(Notification{Kind: NotifyStateChange, SessionID: s.id, Old: StateListening, New: StateError})
	o.notifyLocked(Notification{Kind: NotifyError, SessionID: s.id, Err: err})
	o.emitMu.Unlock()

	s.logger.Error().Err(err).Msg("Recognition failed")
	s.metrics.RecordError(errorKind(err), "recognizer")

	// Stop forwarding and output immediately; the pump returns on its own.
	s.cancel()
	go o.cleanupAfterFailure(s)
}

func (o *Orchestrator) cleanupAfterFailure(s *session) {
	o.opMu.Lock()
	defer o.opMu.Unlock()

	o.mu.Lock()
	current := o.current == s
	o.mu.Unlock()
	if !current {
		return
	}

	o.teardown(s)
	o.setCurrent(nil)
	s.logger.Info().Msg("Released resources after failure")
}

func (o *Orchestrator) setCurrent(s *session) {
	o.mu.Lock()
	o.current = s
	o.mu.Unlock()
}

// transition sets the state and emits a state change when it differs.
func (o *Orchestrator) transition(to State, sessionID string) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	if from == to {
		return
	}
	observability.SetRecognizerState(int(to))
	o.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("State change")
	o.notifyLocked(Notification{Kind: NotifyStateChange, SessionID: sessionID, Old: from, New: to})
}

func (o *Orchestrator) emit(n Notification) {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()
	o.notifyLocked(n)
}

// notifyLocked delivers n. The caller holds emitMu.
func (o *Orchestrator) notifyLocked(n Notification) {
	if o.observer == nil {
		return
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	o.observer.Notify(n)
}
