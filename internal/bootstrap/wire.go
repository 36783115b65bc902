// Package bootstrap assembles the recognizer and its collaborators from
// configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/lexiqai/voice-typer/internal/audio"
	"github.com/lexiqai/voice-typer/internal/commands"
	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/control"
	"github.com/lexiqai/voice-typer/internal/keyboard"
	"github.com/lexiqai/voice-typer/internal/notify"
	"github.com/lexiqai/voice-typer/internal/observability"
	"github.com/lexiqai/voice-typer/internal/recognition"
	"github.com/lexiqai/voice-typer/internal/resilience"
	"github.com/lexiqai/voice-typer/internal/stt"
)

// App is a fully wired recognizer.
type App struct {
	Table        *commands.Table
	Matcher      *commands.Matcher
	Source       *audio.Source
	Stream       *stt.DeepgramStream
	Actuator     *keyboard.Actuator
	Orchestrator *recognition.Orchestrator
	Events       *control.EventHub
	GRPCHealth   *control.GRPCHealth // nil when disabled
	Desktop      *notify.Desktop     // nil when disabled

	mu  sync.RWMutex
	cfg *config.Config
}

// New builds every component described by cfg. ctx bounds opening the
// keyboard device.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	entries, err := LoadCommands(cfg)
	if err != nil {
		return nil, err
	}
	table := commands.NewTable(entries...)

	source, err := NewSource(cfg)
	if err != nil {
		return nil, err
	}

	actuator, err := keyboard.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create output actuator: %w", err)
	}

	app := &App{
		cfg:      cfg,
		Table:    table,
		Matcher:  commands.NewMatcher(table),
		Source:   source,
		Stream:   stt.NewDeepgramStream(cfg),
		Actuator: actuator,
		Events:   control.NewEventHub(),
	}

	observers := recognition.Observers{app.Events}
	if cfg.GRPCHealthAddr() != "" {
		app.GRPCHealth = control.NewGRPCHealth()
		observers = append(observers, app.GRPCHealth)
	}
	if cfg.Notifications {
		app.Desktop = notify.NewDesktop()
		observers = append(observers, app.Desktop)
	}

	app.Orchestrator = recognition.NewOrchestrator(recognition.Deps{
		Source:   app.Source,
		Stream:   app.Stream,
		Actuator: app.Actuator,
		Matcher:  app.Matcher,
		Observer: observers,
	}, Settings(cfg))

	return app, nil
}

// Reload applies a re-read configuration: the command table is swapped,
// settings and the stream's connect timeout and circuit breaker take
// effect on the next start, and the log level at once.
func (a *App) Reload(cfg *config.Config) error {
	entries, err := LoadCommands(cfg)
	if err != nil {
		return err
	}
	a.Table.Replace(entries)
	a.Orchestrator.UpdateSettings(Settings(cfg))
	a.Stream.Reconfigure(cfg)
	observability.SetLevel(cfg.LogLevel)

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()
	return nil
}

// Config returns the configuration last applied.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Close stops recognition and the notification workers.
func (a *App) Close() error {
	err := a.Orchestrator.Close()
	if a.Desktop != nil {
		a.Desktop.Close()
	}
	return err
}

// ReadinessChecks reports whether a session could start right now.
func (a *App) ReadinessChecks() []observability.NamedCheck {
	return []observability.NamedCheck{
		{Name: "credential", Check: func(ctx context.Context) (bool, error) {
			if a.Orchestrator.Settings().Stream.APIKey == "" {
				return false, errors.New("DEEPGRAM_API_KEY is not set")
			}
			return true, nil
		}},
		{Name: "transcription", Check: func(ctx context.Context) (bool, error) {
			if a.Stream.Breaker().GetState() == resilience.StateOpen {
				return false, resilience.ErrCircuitOpen
			}
			return true, nil
		}},
		{Name: "audio", Check: func(ctx context.Context) (bool, error) {
			return AudioAvailable(a.Config())
		}},
	}
}

// LoadCommands builds the effective command table: the defaults, then
// CUSTOM_COMMANDS, then COMMANDS_FILE. A later phrase overrides an earlier
// one in place.
func LoadCommands(cfg *config.Config) ([]commands.Entry, error) {
	custom := [][]commands.Entry{commands.FromMap(cfg.CustomCommands)}
	if cfg.CommandsFile != "" {
		fromFile, err := commands.LoadFile(cfg.CommandsFile)
		if err != nil {
			return nil, err
		}
		custom = append(custom, fromFile)
	}
	return commands.Build(custom...), nil
}

// NewSource creates the audio source selected by AUDIO_BACKEND.
func NewSource(cfg *config.Config) (*audio.Source, error) {
	vad := audio.NewVADDetector(&audio.VADConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		SilenceFrames:   cfg.VADSilenceFrames,
	})

	switch cfg.AudioBackend {
	case "ffmpeg":
		return audio.NewFFmpegSource(FFmpegConfig(cfg), vad), nil
	case "portaudio", "":
		return audio.NewPortAudioSource(cfg.AudioFramesPerBuffer, vad), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
	}
}

// FFmpegConfig extracts the ffmpeg capture settings.
func FFmpegConfig(cfg *config.Config) audio.FFmpegConfig {
	return audio.FFmpegConfig{
		Command:         cfg.FFmpegCommand,
		InputFormat:     cfg.AudioInputFormat,
		InputDevice:     cfg.AudioInputDevice,
		FramesPerBuffer: cfg.AudioFramesPerBuffer,
	}
}

// AudioAvailable reports whether the configured capture backend can run
// in this build and environment.
func AudioAvailable(cfg *config.Config) (bool, error) {
	switch cfg.AudioBackend {
	case "ffmpeg":
		command := cfg.FFmpegCommand
		if command == "" {
			command = "ffmpeg"
		}
		if _, err := exec.LookPath(command); err != nil {
			return false, fmt.Errorf("ffmpeg not found: %w", err)
		}
		return true, nil
	case "portaudio", "":
		if !audio.PortAudioAvailable {
			return false, errors.New("portaudio is not available in this build")
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
	}
}

// Settings derives the recognizer settings from cfg.
func Settings(cfg *config.Config) recognition.Settings {
	return recognition.Settings{
		Stream:        StreamConfig(cfg),
		VoiceCommands: cfg.VoiceCommands,
		TypingDelay:   cfg.TypingDelay(),
	}
}

// StreamConfig derives the per-session transcription options from cfg.
func StreamConfig(cfg *config.Config) stt.StreamConfig {
	return stt.StreamConfig{
		APIKey:         cfg.DeepgramAPIKey,
		Model:          cfg.DeepgramModel,
		Language:       cfg.DeepgramLanguage,
		Punctuate:      cfg.DeepgramPunctuate,
		InterimResults: cfg.DeepgramInterimResults,
		EndpointingMs:  cfg.DeepgramEndpointing,
		SmartFormat:    cfg.DeepgramSmartFormat,
	}
}
