package keyboard

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-typer/internal/observability"
)

// LogBackend writes key events to the log instead of the desktop. It backs
// OUTPUT_BACKEND=log, which is handy for headless runs and demos.
type LogBackend struct {
	logger zerolog.Logger
}

// NewLogBackend creates a dry-run backend.
func NewLogBackend() *LogBackend {
	return &LogBackend{logger: observability.Component("keyboard").With().Bool("dry_run", true).Logger()}
}

func (b *LogBackend) KeyDown(keys []string) error {
	b.logger.Info().Str("keys", strings.Join(keys, "+")).Msg("key down")
	return nil
}

func (b *LogBackend) KeyUp(keys []string) error {
	b.logger.Debug().Str("keys", strings.Join(keys, "+")).Msg("key up")
	return nil
}

func (b *LogBackend) Paste(text string) error {
	b.logger.Info().Str("text", text).Msg("paste")
	return nil
}
