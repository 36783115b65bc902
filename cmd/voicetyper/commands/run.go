package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lexiqai/voice-typer/internal/bootstrap"
	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/control"
	"github.com/lexiqai/voice-typer/internal/observability"
)

const shutdownTimeout = 10 * time.Second

var listenOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dictation daemon",
	Long: `Run the dictation daemon with its local control server.

Endpoints:
  POST /start, /stop, /toggle   control listening
  GET  /state                   current state and interim transcript
  GET  /commands                effective command table
  GET  /events                  websocket feed of recognizer notifications
  GET  /health, /ready          liveness and readiness
  GET  /metrics                 Prometheus metrics (METRICS_ENABLED)

SIGHUP reloads .env, the environment and COMMANDS_FILE. New settings,
including DEEPGRAM_CONNECT_TIMEOUT and CIRCUIT_BREAKER_*, apply on the next
start; the command table and typing speed apply at once. Addresses, audio
and output backends need a restart.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&listenOnStart, "listen", false, "start listening as soon as the daemon is up")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if logLevel == "" {
		observability.SetLevel(cfg.LogLevel)
	}
	logger := observability.GetLogger()

	logger.Info().
		Str("addr", cfg.ListenAddr()).
		Str("audio_backend", cfg.AudioBackend).
		Str("output_backend", cfg.OutputBackend).
		Str("model", cfg.DeepgramModel).
		Str("language", cfg.DeepgramLanguage).
		Bool("voice_commands", cfg.VoiceCommands).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice typer starting")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}

	server := control.NewServer(cfg, app.Orchestrator, app.Matcher, app.Events, app.ReadinessChecks()...)
	errCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("control server: %w", err)
		}
	}()
	if app.GRPCHealth != nil {
		go func() {
			if err := app.GRPCHealth.Serve(cfg.GRPCHealthAddr()); err != nil {
				errCh <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
	}

	if listenOnStart {
		if err := app.Orchestrator.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to start listening")
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down...")
			break loop
		case runErr = <-errCh:
			logger.Error().Err(runErr).Msg("Server failed")
			break loop
		case <-hup:
			reload(app, logger)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop recognizer")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Control server forced to shut down")
	}
	if app.GRPCHealth != nil {
		app.GRPCHealth.Stop()
	}

	logger.Info().Msg("Voice typer exited")
	return runErr
}

func reload(app *bootstrap.App, logger zerolog.Logger) {
	cfg, err := config.Reload()
	if err != nil {
		logger.Error().Err(err).Msg("Reload failed, keeping previous configuration")
		return
	}
	if err := app.Reload(cfg); err != nil {
		logger.Error().Err(err).Msg("Reload failed, keeping previous configuration")
		return
	}
	if logLevel != "" {
		observability.SetLevel(logLevel)
	}
	logger.Info().Int("commands", app.Table.Len()).Msg("Configuration reloaded")
}
