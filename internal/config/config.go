package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// SupportedLanguages lists the recognition languages accepted by Validate.
var SupportedLanguages = []string{"en-US", "en-GB", "es", "fr", "de", "it", "pt", "nl"}

// Config holds all configuration for the voice typer daemon
type Config struct {
	// Control surface
	BindAddress    string `envconfig:"BIND_ADDRESS" default:"127.0.0.1"`
	Port           string `envconfig:"PORT" default:"8080"`
	GRPCHealthPort string `envconfig:"GRPC_HEALTH_PORT" default:""` // empty disables the gRPC health server

	// Deepgram live transcription
	DeepgramAPIKey         string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel          string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage       string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-US"`
	DeepgramPunctuate      bool   `envconfig:"DEEPGRAM_PUNCTUATE" default:"true"`
	DeepgramInterimResults bool   `envconfig:"DEEPGRAM_INTERIM_RESULTS" default:"true"`
	DeepgramEndpointing    int    `envconfig:"DEEPGRAM_ENDPOINTING" default:"300"` // milliseconds of silence before finalizing
	DeepgramSmartFormat    bool   `envconfig:"DEEPGRAM_SMART_FORMAT" default:"true"`
	DeepgramConnectTimeout int    `envconfig:"DEEPGRAM_CONNECT_TIMEOUT" default:"5000"` // milliseconds

	// Dictation behaviour
	VoiceCommands  bool              `envconfig:"VOICE_COMMANDS" default:"true"`
	TypingSpeed    int               `envconfig:"TYPING_SPEED" default:"50"` // milliseconds per character
	CustomCommands map[string]string `envconfig:"CUSTOM_COMMANDS"`           // phrase:action,phrase:action
	CommandsFile   string            `envconfig:"COMMANDS_FILE" default:""`  // YAML file with extra commands

	// Audio capture
	AudioBackend         string  `envconfig:"AUDIO_BACKEND" default:"portaudio"` // portaudio, ffmpeg
	AudioFramesPerBuffer int     `envconfig:"AUDIO_FRAMES_PER_BUFFER" default:"1024"`
	FFmpegCommand        string  `envconfig:"FFMPEG_COMMAND" default:"ffmpeg"`
	AudioInputFormat     string  `envconfig:"AUDIO_INPUT_FORMAT" default:"pulse"` // ffmpeg -f value
	AudioInputDevice     string  `envconfig:"AUDIO_INPUT_DEVICE" default:"default"`
	VADEnergyThreshold   float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold for speech activity
	VADSilenceFrames     int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // frames of silence to end a speech segment

	// Output
	OutputBackend string `envconfig:"OUTPUT_BACKEND" default:"keyboard"` // keyboard, log

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Attempts to open the keyboard device
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Host integration
	Notifications bool `envconfig:"NOTIFICATIONS" default:"true"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Load reads configuration from environment variables and validates it.
// It first attempts to load a .env file if one exists.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads and validates configuration directly from environment
// variables without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	cfg, err := process()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse loads .env and the environment without validating. Subcommands that
// never talk to Deepgram use it so they work without a credential.
func Parse() (*Config, error) {
	_ = godotenv.Load()
	return process()
}

// Reload re-reads .env (overriding values loaded earlier) and the
// environment, then validates.
func Reload() (*Config, error) {
	_ = godotenv.Overload()
	return LoadFromEnv()
}

func process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings a recognition session depends on.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DeepgramAPIKey) == "" {
		problems = append(problems, "DEEPGRAM_API_KEY is required")
	}
	if !IsSupportedLanguage(c.DeepgramLanguage) {
		problems = append(problems, fmt.Sprintf("DEEPGRAM_LANGUAGE %q is not supported (supported: %s)",
			c.DeepgramLanguage, strings.Join(SupportedLanguages, ", ")))
	}
	if c.TypingSpeed < 0 || c.TypingSpeed > 1000 {
		problems = append(problems, "TYPING_SPEED must be between 0 and 1000")
	}
	if c.DeepgramEndpointing < 0 {
		problems = append(problems, "DEEPGRAM_ENDPOINTING must not be negative")
	}
	if c.DeepgramConnectTimeout <= 0 {
		problems = append(problems, "DEEPGRAM_CONNECT_TIMEOUT must be positive")
	}
	switch c.AudioBackend {
	case "portaudio", "ffmpeg":
	default:
		problems = append(problems, fmt.Sprintf("AUDIO_BACKEND %q is not one of portaudio, ffmpeg", c.AudioBackend))
	}
	if c.AudioFramesPerBuffer <= 0 {
		problems = append(problems, "AUDIO_FRAMES_PER_BUFFER must be positive")
	}
	switch c.OutputBackend {
	case "keyboard", "log":
	default:
		problems = append(problems, fmt.Sprintf("OUTPUT_BACKEND %q is not one of keyboard, log", c.OutputBackend))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsSupportedLanguage reports whether lang is an accepted recognition language.
func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// ListenAddr returns the control server address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddress, c.Port)
}

// GRPCHealthAddr returns the gRPC health server address, or "" when disabled.
func (c *Config) GRPCHealthAddr() string {
	if c.GRPCHealthPort == "" {
		return ""
	}
	return net.JoinHostPort(c.BindAddress, c.GRPCHealthPort)
}

// TypingDelay returns the per-character typing delay.
func (c *Config) TypingDelay() time.Duration {
	return time.Duration(c.TypingSpeed) * time.Millisecond
}

// ConnectTimeout returns the transcription stream connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.DeepgramConnectTimeout) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
