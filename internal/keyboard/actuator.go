package keyboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/observability"
)

const (
	// DefaultSettleDelay lets the focused window catch up before typing.
	DefaultSettleDelay = 100 * time.Millisecond
	// DefaultHoldDelay is how long a chord stays pressed.
	DefaultHoldDelay = 50 * time.Millisecond
)

// Backend injects key events into the focused application.
type Backend interface {
	// KeyDown presses keys (modifiers included) in order.
	KeyDown(keys []string) error
	// KeyUp releases keys in the order given.
	KeyUp(keys []string) error
	// Paste inserts text that has no key mapping.
	Paste(text string) error
}

// Actuator executes output actions against a Backend. Actions run one at
// a time.
type Actuator struct {
	backend     Backend
	logger      zerolog.Logger
	typingDelay atomic.Int64
	settleDelay time.Duration
	holdDelay   time.Duration

	mu sync.Mutex
}

// New creates an actuator typing with the given per-character delay.
func New(backend Backend, typingDelay time.Duration) *Actuator {
	a := &Actuator{
		backend:     backend,
		logger:      observability.Component("keyboard"),
		settleDelay: DefaultSettleDelay,
		holdDelay:   DefaultHoldDelay,
	}
	a.typingDelay.Store(int64(typingDelay))
	return a
}

// SetTypingDelay changes the per-character delay for later actions.
func (a *Actuator) SetTypingDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	a.typingDelay.Store(int64(d))
}

// TypingDelay returns the current per-character delay.
func (a *Actuator) TypingDelay() time.Duration {
	return time.Duration(a.typingDelay.Load())
}

// Execute performs one action.
func (a *Actuator) Execute(ctx context.Context, action Action) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch action.Kind {
	case ActionType:
		return a.typeText(ctx, action.Text)
	case ActionKeys:
		return a.pressKeys(ctx, action.Keys)
	default:
		return fmt.Errorf("unsupported action kind %d", action.Kind)
	}
}

// TypeText types text after the settle delay, pausing between characters.
func (a *Actuator) TypeText(ctx context.Context, text string) error {
	return a.Execute(ctx, TypeText(text))
}

// PressKey taps a single key.
func (a *Actuator) PressKey(ctx context.Context, key string) error {
	return a.Execute(ctx, PressKeys(key))
}

// Chord holds keys together, then releases them in reverse order.
func (a *Actuator) Chord(ctx context.Context, keys ...string) error {
	return a.Execute(ctx, PressKeys(strings.Join(keys, "+")))
}

func (a *Actuator) typeText(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if err := sleep(ctx, a.settleDelay); err != nil {
		return err
	}

	delay := a.TypingDelay()
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if i > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		key, shift, ok := keyForRune(runes[i])
		if !ok {
			// paste a run of unmapped characters in one go
			j := i + 1
			for j < len(runes) {
				if _, _, mapped := keyForRune(runes[j]); mapped {
					break
				}
				j++
			}
			if err := a.backend.Paste(string(runes[i:j])); err != nil {
				return fmt.Errorf("failed to paste %q: %w", string(runes[i:j]), err)
			}
			i = j
			continue
		}

		keys := []string{key}
		if shift {
			keys = []string{"shift", key}
		}
		if err := a.tap(keys); err != nil {
			return err
		}
		i++
	}

	a.logger.Debug().Int("chars", len(runes)).Msg("Typed text")
	return nil
}

func (a *Actuator) pressKeys(ctx context.Context, action string) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return fmt.Errorf("empty key action")
	}

	if isLiteral(action) {
		return a.typeLiteral(action)
	}

	keys, err := ParseChord(action)
	if err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("Unknown key in action")
		return err
	}

	if len(keys) == 1 {
		if err := a.tap(keys); err != nil {
			return err
		}
		a.logger.Debug().Str("key", keys[0]).Msg("Pressed key")
		return nil
	}

	if err := a.backend.KeyDown(keys); err != nil {
		// release whatever went down so no modifier stays stuck
		_ = a.backend.KeyUp(reversed(keys))
		return fmt.Errorf("failed to press %s: %w", action, err)
	}
	holdErr := sleep(ctx, a.holdDelay)
	if err := a.backend.KeyUp(reversed(keys)); err != nil {
		return fmt.Errorf("failed to release %s: %w", action, err)
	}
	if holdErr != nil {
		return holdErr
	}

	a.logger.Debug().Strs("keys", keys).Msg("Pressed chord")
	return nil
}

// typeLiteral types one character without the settle delay.
func (a *Actuator) typeLiteral(s string) error {
	r := []rune(s)[0]
	if key, shift, ok := keyForRune(r); ok {
		keys := []string{key}
		if shift {
			keys = []string{"shift", key}
		}
		return a.tap(keys)
	}
	if err := a.backend.Paste(s); err != nil {
		return fmt.Errorf("failed to type %q: %w", s, err)
	}
	return nil
}

func (a *Actuator) tap(keys []string) error {
	if err := a.backend.KeyDown(keys); err != nil {
		_ = a.backend.KeyUp(reversed(keys))
		return fmt.Errorf("failed to press %s: %w", strings.Join(keys, "+"), err)
	}
	if err := a.backend.KeyUp(reversed(keys)); err != nil {
		return fmt.Errorf("failed to release %s: %w", strings.Join(keys, "+"), err)
	}
	return nil
}

func reversed(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[len(keys)-1-i] = k
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
