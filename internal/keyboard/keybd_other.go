//go:build !((linux && cgo) || windows)

package keyboard

import (
	"context"
	"errors"

	"github.com/lexiqai/voice-typer/internal/resilience"
)

// KeybdBackend is unavailable on this platform.
type KeybdBackend struct{}

// NewKeybdBackend always fails on platforms without virtual keyboard support.
func NewKeybdBackend(ctx context.Context, retry *resilience.RetryConfig) (*KeybdBackend, error) {
	return nil, errors.New("keyboard output is not supported on this platform; use OUTPUT_BACKEND=log")
}

func (b *KeybdBackend) KeyDown(keys []string) error { return errors.New("unsupported") }
func (b *KeybdBackend) KeyUp(keys []string) error   { return errors.New("unsupported") }
func (b *KeybdBackend) Paste(text string) error     { return errors.New("unsupported") }
