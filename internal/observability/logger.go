package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	loggerMu     sync.RWMutex
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger initializes the global structured logger. Logs go to stderr so
// CLI output on stdout stays clean.
func InitLogger(level string, pretty bool) {
	InitLoggerWithWriter(os.Stderr, level, pretty)
}

// InitLoggerWithWriter initializes the global logger on an arbitrary writer.
// Calling it again replaces the previous logger.
func InitLoggerWithWriter(w io.Writer, level string, pretty bool) {
	SetLevel(level)

	out := w
	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	logger := zerolog.New(out).With().Timestamp().Str("service", "voice-typer").Logger()

	loggerMu.Lock()
	globalLogger = logger
	log.Logger = logger
	initialized = true
	loggerMu.Unlock()
}

// SetLevel changes the global log level. Unknown levels fall back to info.
func SetLevel(level string) {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	loggerMu.RLock()
	ok := initialized
	logger := globalLogger
	loggerMu.RUnlock()

	if !ok {
		InitLogger("info", false)
		return GetLogger()
	}
	return logger
}

// Component returns a logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return GetLogger().With().Str("component", name).Logger()
}

// WithSession returns a logger carrying a recognition session ID.
func WithSession(sessionID string) zerolog.Logger {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return GetLogger().With().Str("session_id", sessionID).Logger()
}

// NewSessionID generates a new session correlation ID
func NewSessionID() string {
	return uuid.New().String()
}
