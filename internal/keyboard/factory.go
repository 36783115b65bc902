package keyboard

import (
	"context"
	"fmt"
	"time"

	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/resilience"
)

// NewFromConfig builds the actuator selected by OUTPUT_BACKEND.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Actuator, error) {
	var backend Backend
	switch cfg.OutputBackend {
	case "log":
		backend = NewLogBackend()
	case "keyboard", "":
		kb, err := NewKeybdBackend(ctx, &resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		})
		if err != nil {
			return nil, err
		}
		backend = kb
	default:
		return nil, fmt.Errorf("unknown output backend %q", cfg.OutputBackend)
	}
	return New(backend, cfg.TypingDelay()), nil
}
