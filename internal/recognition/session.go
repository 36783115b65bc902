package recognition

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/audio"
	"github.com/lexiqai/voice-typer/internal/keyboard"
	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/stt"
)

// session holds everything that lives for one Listening period.
type session struct {
	id            string
	ctx           context.Context
	cancel        context.CancelFunc
	logger        zerolog.Logger
	metrics       *observability.Metrics
	voiceCommands bool

	// Owned by the pump goroutine.
	buffer UtteranceBuffer

	audio       <-chan audio.Event
	transcripts <-chan stt.Event
	output      *outputQueue

	ready      chan struct{} // closed once the session is published as Listening
	done       chan struct{} // closed when the pump returns
	workerDone chan struct{} // closed when the output worker returns
}

func newSession(settings Settings) *session {
	id := observability.NewSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:            id,
		ctx:           ctx,
		cancel:        cancel,
		logger:        observability.WithSession(id).With().Str("component", "recognizer").Logger(),
		metrics:       observability.NewSessionMetrics(id),
		voiceCommands: settings.VoiceCommands,
		output:        newOutputQueue(),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
		workerDone:    make(chan struct{}),
	}
}

// outputQueue is an unbounded FIFO of actions so transcript handling never
// waits on the actuator.
type outputQueue struct {
	mu     sync.Mutex
	items  []keyboard.Action
	signal chan struct{}
}

func newOutputQueue() *outputQueue {
	return &outputQueue{signal: make(chan struct{}, 1)}
}

func (q *outputQueue) push(a keyboard.Action) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *outputQueue) pop() (keyboard.Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return keyboard.Action{}, false
	}
	a := q.items[0]
	q.items[0] = keyboard.Action{}
	q.items = q.items[1:]
	return a, true
}

func (q *outputQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pump consumes audio and transcript events for s until the session is
// cancelled or one of its adapters fails.
func (o *Orchestrator) pump(s *session) {
	defer close(s.done)

	select {
	case <-s.ready:
	case <-s.ctx.Done():
		return
	}

	audioEvents := s.audio
	transcripts := s.transcripts

	for {
		select {
		case <-s.ctx.Done():
			return

		case ev, ok := <-audioEvents:
			if !ok {
				audioEvents = nil
				continue
			}
			if !o.handleAudio(s, ev) {
				return
			}

		case ev, ok := <-transcripts:
			if !ok {
				transcripts = nil
				continue
			}
			if !o.handleTranscript(s, ev) {
				return
			}
		}
	}
}

// handleAudio reports whether the session should keep running.
func (o *Orchestrator) handleAudio(s *session, ev audio.Event) bool {
	switch ev.Kind {
	case audio.EventFrame:
		o.forwardFrame(s, ev.Frame)
	case audio.EventStarted, audio.EventStopped:
		s.logger.Debug().Str("event", ev.Kind.String()).Msg("Audio source event")
	case audio.EventError:
		o.fail(s, &SourceError{Err: ev.Err})
		return false
	}
	return true
}

func (o *Orchestrator) forwardFrame(s *session, frame []byte) {
	if o.State() != StateListening || !o.stream.Connected() {
		s.metrics.RecordFrame(false, 0)
		return
	}
	o.stream.Send(frame)
	s.metrics.RecordFrame(true, len(frame))
}

// handleTranscript reports whether the session should keep running.
func (o *Orchestrator) handleTranscript(s *session, ev stt.Event) bool {
	if ev.Err != nil {
		o.fail(s, &StreamError{Op: "receive", Err: ev.Err})
		return false
	}

	t := ev.Transcript
	if !t.IsFinal {
		s.metrics.RecordTranscript("interim")
		o.mu.Lock()
		o.lastInterim = t.Text
		o.mu.Unlock()
		o.emit(Notification{Kind: NotifyInterim, SessionID: s.id, Text: t.Text})
		return true
	}

	o.mu.Lock()
	o.lastInterim = ""
	o.mu.Unlock()

	text := strings.TrimSpace(t.Text)
	if text == "" {
		s.metrics.RecordTranscript("empty")
		return true
	}
	s.metrics.RecordTranscript("final")

	if s.voiceCommands {
		if parsed := o.matcher.Classify(text); parsed.IsCommand() {
			s.logger.Info().
				Str("text", text).
				Str("phrase", parsed.Phrase).
				Str("action", parsed.Action).
				Float64("similarity", parsed.Similarity).
				Msg("Voice command recognized")
			s.metrics.RecordUtterance("command")
			s.output.push(keyboard.PressKeys(parsed.Action))
			o.emit(Notification{Kind: NotifyCommand, SessionID: s.id, Action: parsed.Action, Text: t.Text})
			return true
		}
	}

	s.metrics.RecordUtterance("text")
	s.output.push(keyboard.TypeText(s.buffer.Append(text)))
	o.emit(Notification{Kind: NotifyText, SessionID: s.id, Text: t.Text})
	return true
}

// runOutput executes queued actions in order until the session ends.
// Actions still queued at that point are discarded.
func (o *Orchestrator) runOutput(s *session) {
	defer close(s.workerDone)

	for {
		select {
		case <-s.ctx.Done():
			if n := s.output.len(); n > 0 {
				s.logger.Debug().Int("discarded", n).Msg("Discarding queued output actions")
			}
			return
		case <-s.output.signal:
		}

		for {
			if s.ctx.Err() != nil {
				break
			}
			a, ok := s.output.pop()
			if !ok {
				break
			}
			o.execute(s, a)
		}
	}
}

func (o *Orchestrator) execute(s *session, a keyboard.Action) {
	o.outputMu.Lock()
	defer o.outputMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	// An action that has begun runs to completion even if the session
	// stops meanwhile, so no modifier is left held down.
	err := o.actuator.Execute(context.WithoutCancel(s.ctx), a)
	s.metrics.RecordAction(a.Kind.String(), err == nil, time.Since(start))
	if err == nil {
		return
	}

	aerr := &ActuatorError{Action: a.String(), Err: err}
	s.logger.Error().Err(err).Str("action", a.String()).Msg("Output action failed")
	s.metrics.RecordError(errorKind(aerr), "actuator")
	o.emit(Notification{Kind: NotifyError, SessionID: s.id, Err: aerr})
}
