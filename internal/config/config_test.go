package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoadFromEnv_MissingAPIKey(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error when DEEPGRAM_API_KEY is missing")
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected *ValidationError, got %T", err)
	}
	if !strings.Contains(verr.Error(), "DEEPGRAM_API_KEY is required") {
		t.Errorf("Unexpected message: %s", verr.Error())
	}
}

func TestParse_DoesNotValidate(t *testing.T) {
	os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.DeepgramAPIKey != "" {
		t.Errorf("Expected empty API key, got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	defer os.Unsetenv("DEEPGRAM_API_KEY")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.DeepgramModel != "nova-2" {
		t.Errorf("Expected default DeepgramModel 'nova-2', got '%s'", cfg.DeepgramModel)
	}
	if cfg.DeepgramLanguage != "en-US" {
		t.Errorf("Expected default DeepgramLanguage 'en-US', got '%s'", cfg.DeepgramLanguage)
	}
	if !cfg.DeepgramPunctuate || !cfg.DeepgramInterimResults || !cfg.DeepgramSmartFormat {
		t.Error("Expected punctuate, interim results and smart format enabled by default")
	}
	if cfg.DeepgramEndpointing != 300 {
		t.Errorf("Expected default DeepgramEndpointing 300, got %d", cfg.DeepgramEndpointing)
	}
	if cfg.ConnectTimeout() != 5*time.Second {
		t.Errorf("Expected default connect timeout 5s, got %v", cfg.ConnectTimeout())
	}
	if !cfg.VoiceCommands {
		t.Error("Expected voice commands enabled by default")
	}
	if cfg.TypingDelay() != 50*time.Millisecond {
		t.Errorf("Expected default typing delay 50ms, got %v", cfg.TypingDelay())
	}
	if cfg.AudioBackend != "portaudio" {
		t.Errorf("Expected default AudioBackend 'portaudio', got '%s'", cfg.AudioBackend)
	}
	if cfg.AudioFramesPerBuffer != 1024 {
		t.Errorf("Expected default AudioFramesPerBuffer 1024, got %d", cfg.AudioFramesPerBuffer)
	}
	if cfg.OutputBackend != "keyboard" {
		t.Errorf("Expected default OutputBackend 'keyboard', got '%s'", cfg.OutputBackend)
	}
	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.GRPCHealthPort != "" || cfg.GRPCHealthAddr() != "" {
		t.Errorf("Expected gRPC health disabled by default, got '%s'", cfg.GRPCHealthPort)
	}
	if cfg.ListenAddr() != "127.0.0.1:8080" {
		t.Errorf("Expected default listen address '127.0.0.1:8080', got '%s'", cfg.ListenAddr())
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("DEEPGRAM_LANGUAGE", "fr")
	os.Setenv("TYPING_SPEED", "0")
	os.Setenv("CUSTOM_COMMANDS", "open terminal:ctrl+alt+t,next tab:ctrl+tab")
	os.Setenv("AUDIO_BACKEND", "ffmpeg")
	defer os.Unsetenv("DEEPGRAM_API_KEY")
	defer os.Unsetenv("DEEPGRAM_LANGUAGE")
	defer os.Unsetenv("TYPING_SPEED")
	defer os.Unsetenv("CUSTOM_COMMANDS")
	defer os.Unsetenv("AUDIO_BACKEND")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.DeepgramLanguage != "fr" {
		t.Errorf("Expected DeepgramLanguage 'fr', got '%s'", cfg.DeepgramLanguage)
	}
	if cfg.TypingSpeed != 0 {
		t.Errorf("Expected TypingSpeed 0, got %d", cfg.TypingSpeed)
	}
	if cfg.CustomCommands["open terminal"] != "ctrl+alt+t" {
		t.Errorf("Expected custom command 'open terminal', got %v", cfg.CustomCommands)
	}
	if len(cfg.CustomCommands) != 2 {
		t.Errorf("Expected 2 custom commands, got %d", len(cfg.CustomCommands))
	}
	if cfg.AudioBackend != "ffmpeg" {
		t.Errorf("Expected AudioBackend 'ffmpeg', got '%s'", cfg.AudioBackend)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DeepgramAPIKey:         "key",
			DeepgramLanguage:       "en-US",
			TypingSpeed:            50,
			DeepgramEndpointing:    300,
			DeepgramConnectTimeout: 5000,
			AudioBackend:           "portaudio",
			AudioFramesPerBuffer:   1024,
			OutputBackend:          "keyboard",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unsupported language", func(c *Config) { c.DeepgramLanguage = "ja" }, "DEEPGRAM_LANGUAGE"},
		{"typing speed too high", func(c *Config) { c.TypingSpeed = 1001 }, "TYPING_SPEED"},
		{"typing speed negative", func(c *Config) { c.TypingSpeed = -1 }, "TYPING_SPEED"},
		{"typing speed upper bound", func(c *Config) { c.TypingSpeed = 1000 }, ""},
		{"negative endpointing", func(c *Config) { c.DeepgramEndpointing = -5 }, "DEEPGRAM_ENDPOINTING"},
		{"zero timeout", func(c *Config) { c.DeepgramConnectTimeout = 0 }, "DEEPGRAM_CONNECT_TIMEOUT"},
		{"unknown audio backend", func(c *Config) { c.AudioBackend = "alsa" }, "AUDIO_BACKEND"},
		{"unknown output backend", func(c *Config) { c.OutputBackend = "xdotool" }, "OUTPUT_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.want == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{
		DeepgramLanguage:       "xx",
		TypingSpeed:            5000,
		DeepgramConnectTimeout: 1,
		AudioBackend:           "portaudio",
		AudioFramesPerBuffer:   1,
		OutputBackend:          "log",
	}

	var verr *ValidationError
	if !errors.As(cfg.Validate(), &verr) {
		t.Fatal("Expected *ValidationError")
	}
	if len(verr.Problems) != 3 {
		t.Errorf("Expected 3 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	if value := GetEnv("TEST_VAR", "default"); value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}
	if value := GetEnv("NON_EXISTENT_VAR", "default"); value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}
