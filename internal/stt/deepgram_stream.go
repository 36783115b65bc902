package stt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/resilience"
)

const eventBufferSize = 100

// dialRetry covers refused or reset connects within the connect timeout.
var dialRetry = &resilience.RetryConfig{
	MaxAttempts:       3,
	InitialBackoff:    100 * time.Millisecond,
	MaxBackoff:        500 * time.Millisecond,
	BackoffMultiplier: 2.0,
}

// messageCallbackHandler implements the LiveMessageCallback interface.
// It embeds the default handler and overrides the methods we act on.
type messageCallbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	conn *deepgramConn
}

// Open marks the connection as established
func (m *messageCallbackHandler) Open(or *msginterfaces.OpenResponse) error {
	m.conn.logger.Debug().Msg("Deepgram connection opened")
	return nil
}

// Message forwards transcription results to the connection's event channel
func (m *messageCallbackHandler) Message(mr *msginterfaces.MessageResponse) error {
	m.conn.handleMessage(mr)
	return nil
}

// Close reports a connection closed by the remote side
func (m *messageCallbackHandler) Close(cr *msginterfaces.CloseResponse) error {
	m.conn.handleClose()
	return nil
}

// Error reports service errors as stream failures
func (m *messageCallbackHandler) Error(er *msginterfaces.ErrorResponse) error {
	m.conn.fail(fmt.Errorf("deepgram error: %+v", er))
	return nil
}

// deepgramConn is one live websocket session. Its event channel is never
// closed; consumers stop reading when their session ends.
type deepgramConn struct {
	client    *listenClient.WSCallback
	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event
	connected atomic.Bool
	closing   atomic.Bool
	failOnce  sync.Once
	logger    zerolog.Logger
	onFailure func()

	// serializes Write against Finish
	writeMu sync.RWMutex
}

func (c *deepgramConn) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// deliver blocks until ev is queued or the connection is released.
func (c *deepgramConn) deliver(ev Event) bool {
	var done <-chan struct{}
	if c.ctx != nil {
		done = c.ctx.Done()
	}
	select {
	case c.events <- ev:
		return true
	case <-done:
		return false
	}
}

// fail reports the first failure of the connection. The error event is
// never dropped: with a full channel it is queued from a goroutine, since
// fail may run on the consumer's own goroutine via Send.
func (c *deepgramConn) fail(err error) {
	if c.closing.Load() {
		return
	}
	c.failOnce.Do(func() {
		c.connected.Store(false)
		if c.onFailure != nil {
			c.onFailure()
		}
		ev := Event{Err: err}
		if c.emit(ev) {
			return
		}
		c.logger.Warn().Err(err).Msg("Event channel full, queueing stream error")
		go func() {
			if !c.deliver(ev) {
				c.logger.Debug().Err(err).Msg("Connection released before stream error was delivered")
			}
		}()
	})
}

func (c *deepgramConn) handleClose() {
	if c.closing.Load() {
		c.logger.Debug().Msg("Deepgram connection closed")
		return
	}
	c.fail(errors.New("deepgram connection closed unexpectedly"))
}

// handleMessage processes messages from Deepgram
func (c *deepgramConn) handleMessage(msg *msginterfaces.MessageResponse) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Metadata":
		c.logger.Debug().Interface("metadata", msg.Metadata).Msg("Deepgram metadata")

	case "SpeechStarted":
		c.logger.Debug().Msg("Deepgram: speech started")

	case "UtteranceEnd":
		c.logger.Debug().Msg("Deepgram: utterance ended")

	case "Results", "Message":
		ev, ok := transcriptFromMessage(msg)
		if !ok {
			return
		}
		if ev.IsFinal {
			// finals are never dropped
			if !c.deliver(Event{Transcript: ev}) {
				return
			}
		} else if !c.emit(Event{Transcript: ev}) {
			c.logger.Warn().Msg("Event channel full, dropping interim transcript")
			return
		}
		if ev.IsFinal {
			c.logger.Debug().Str("text", ev.Text).Float64("confidence", ev.Confidence).Msg("Deepgram final transcript")
		}

	default:
		c.logger.Debug().Str("type", msg.Type).Msg("Deepgram: unhandled message type")
	}
}

// transcriptFromMessage converts a results message. Empty interim results
// are dropped; empty finals are kept so the consumer sees the segment end.
func transcriptFromMessage(msg *msginterfaces.MessageResponse) (TranscriptEvent, bool) {
	if len(msg.Channel.Alternatives) == 0 {
		return TranscriptEvent{}, false
	}

	alt := msg.Channel.Alternatives[0]
	if alt.Transcript == "" && !msg.IsFinal {
		return TranscriptEvent{}, false
	}

	start := msg.Start
	duration := msg.Duration
	if len(alt.Words) > 0 && duration == 0 {
		start = alt.Words[0].Start
		duration = alt.Words[len(alt.Words)-1].End - start
	}

	return TranscriptEvent{
		Text:       alt.Transcript,
		IsFinal:    msg.IsFinal,
		Confidence: alt.Confidence,
		Start:      start,
		Duration:   duration,
	}, true
}

// dialFunc creates and connects a live client. It is swapped in tests.
type dialFunc func(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb *messageCallbackHandler) (*listenClient.WSCallback, error)

// DeepgramStream is the transcription stream backed by Deepgram's live
// websocket API. One connection is open at a time.
type DeepgramStream struct {
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
	dial           dialFunc

	mu             sync.Mutex
	conn           *deepgramConn
	opening        bool
	connectTimeout time.Duration
}

// NewDeepgramStream creates a stream using the resilience and timeout
// settings from cfg. Per-session options are passed to Open.
func NewDeepgramStream(cfg *config.Config) *DeepgramStream {
	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	circuitBreaker.OnStateChange = func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
	}

	return &DeepgramStream{
		connectTimeout: cfg.ConnectTimeout(),
		circuitBreaker: circuitBreaker,
		logger:         observability.Component("stt"),
		dial:           dialDeepgram,
	}
}

// Reconfigure applies the connect timeout and circuit breaker settings of
// cfg. An open connection is not affected; the next Open uses them.
func (d *DeepgramStream) Reconfigure(cfg *config.Config) {
	d.circuitBreaker.Configure(
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	d.mu.Lock()
	d.connectTimeout = cfg.ConnectTimeout()
	d.mu.Unlock()
}

// ConnectTimeout returns the timeout the next Open will use.
func (d *DeepgramStream) ConnectTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectTimeout
}

func dialDeepgram(ctx context.Context, apiKey string, opts *interfaces.LiveTranscriptionOptions, cb *messageCallbackHandler) (*listenClient.WSCallback, error) {
	client, err := listenClient.NewWSUsingCallback(ctx, apiKey, nil, opts, cb)
	if err != nil {
		return nil, fmt.Errorf("failed to create Deepgram client: %w", err)
	}
	if !client.Connect() {
		return nil, errors.New("failed to connect to Deepgram")
	}
	return client, nil
}

// liveOptions maps a StreamConfig onto Deepgram's query options.
func liveOptions(sc StreamConfig) *interfaces.LiveTranscriptionOptions {
	return &interfaces.LiveTranscriptionOptions{
		Model:          sc.Model,
		Language:       sc.Language,
		Punctuate:      sc.Punctuate,
		InterimResults: sc.InterimResults,
		SmartFormat:    sc.SmartFormat,
		Endpointing:    strconv.Itoa(sc.EndpointingMs),
		Encoding:       Encoding,
		Channels:       Channels,
		SampleRate:     SampleRate,
	}
}

// Open connects a new live session. It returns once the connection is
// usable, or with ErrConnectionTimeout if that takes longer than the
// configured timeout. ctx bounds only the connect; the connection lives
// until Close.
func (d *DeepgramStream) Open(ctx context.Context, sc StreamConfig) error {
	if sc.APIKey == "" {
		return errors.New("deepgram API key is empty")
	}

	d.mu.Lock()
	if d.conn != nil || d.opening {
		d.mu.Unlock()
		return ErrAlreadyOpen
	}
	d.opening = true
	d.mu.Unlock()

	start := time.Now()
	var conn *deepgramConn
	err := d.circuitBreaker.Call(func() error {
		var err error
		conn, err = d.connect(ctx, sc)
		return err
	})

	d.mu.Lock()
	d.opening = false
	if err == nil {
		d.conn = conn
	}
	d.mu.Unlock()

	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			observability.IncrementCircuitBreakerFailures("deepgram")
		}
		return err
	}

	observability.ObserveStreamConnect(time.Since(start))
	d.logger.Info().
		Str("model", sc.Model).
		Str("language", sc.Language).
		Dur("connect", time.Since(start)).
		Msg("Deepgram stream opened")
	return nil
}

type dialResult struct {
	client *listenClient.WSCallback
	err    error
}

func (d *DeepgramStream) connect(ctx context.Context, sc StreamConfig) (*deepgramConn, error) {
	connCtx, cancel := context.WithCancel(context.Background())
	conn := &deepgramConn{
		ctx:    connCtx,
		cancel: cancel,
		events: make(chan Event, eventBufferSize),
		logger: d.logger,
		onFailure: func() {
			d.circuitBreaker.RecordResult(false)
		},
	}
	callback := &messageCallbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		conn:                   conn,
	}

	result := make(chan dialResult, 1)
	go func() {
		var client *listenClient.WSCallback
		err := resilience.Retry(connCtx, func(ctx context.Context) error {
			var err error
			client, err = d.dial(ctx, sc.APIKey, liveOptions(sc), callback)
			return err
		}, dialRetry, resilience.IsRetryableNetworkError)
		result <- dialResult{client: client, err: err}
	}()

	timer := time.NewTimer(d.ConnectTimeout())
	defer timer.Stop()

	select {
	case r := <-result:
		if r.err != nil {
			cancel()
			return nil, r.err
		}
		conn.client = r.client
		conn.connected.Store(true)
		return conn, nil

	case <-timer.C:
		conn.abandon(result)
		return nil, ErrConnectionTimeout

	case <-ctx.Done():
		conn.abandon(result)
		return nil, ctx.Err()
	}
}

// abandon gives up on a connection attempt that is still in flight. A
// client that connects late is finished as soon as the dial returns.
func (c *deepgramConn) abandon(result <-chan dialResult) {
	c.closing.Store(true)
	c.cancel()
	go func() {
		r := <-result
		if r.err == nil && r.client != nil {
			r.client.Finish()
		}
	}()
}

// Send forwards one audio frame. It is a no-op unless the stream is
// connected.
func (d *DeepgramStream) Send(frame []byte) {
	conn := d.current()
	if conn == nil || !conn.connected.Load() {
		return
	}

	conn.writeMu.RLock()
	defer conn.writeMu.RUnlock()
	if conn.closing.Load() {
		return
	}
	if _, err := conn.client.Write(frame); err != nil {
		conn.fail(fmt.Errorf("failed to send audio to Deepgram: %w", err))
	}
}

// Connected reports whether an open connection is usable.
func (d *DeepgramStream) Connected() bool {
	conn := d.current()
	return conn != nil && conn.connected.Load()
}

// Events returns the event channel of the current connection, or nil when
// no connection is open.
func (d *DeepgramStream) Events() <-chan Event {
	conn := d.current()
	if conn == nil {
		return nil
	}
	return conn.events
}

// Close signals end of audio to Deepgram and releases the connection.
// Closing a stream that is not open is a no-op.
func (d *DeepgramStream) Close() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	if conn == nil {
		return nil
	}

	conn.closing.Store(true)
	conn.connected.Store(false)

	conn.writeMu.Lock()
	conn.client.Finish()
	conn.writeMu.Unlock()
	conn.cancel()

	d.logger.Info().Msg("Deepgram stream closed")
	return nil
}

// Breaker exposes the connect circuit breaker for health reporting.
func (d *DeepgramStream) Breaker() *resilience.CircuitBreaker {
	return d.circuitBreaker
}

func (d *DeepgramStream) current() *deepgramConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn
}
