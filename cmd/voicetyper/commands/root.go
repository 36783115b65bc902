package commands

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/lexiqai/voice-typer/internal/config"
	"github.com/lexiqai/voice-typer/internal/observability"
)

var (
	// Global flags
	logLevel   string
	logPretty  bool
	outputJSON bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voicetyper",
	Short: "Voice typing daemon",
	Long: `voicetyper streams microphone audio to Deepgram and types the
transcript into the focused window. Spoken phrases that match the command
table ("new line", "select all", "question mark") press keys instead.

Configuration comes from environment variables and an optional .env file.
DEEPGRAM_API_KEY is required to start recognition.

Examples:
  # Run the daemon and start listening immediately
  voicetyper run --listen

  # Toggle listening from a hotkey script
  curl -X POST http://127.0.0.1:8080/toggle

  # Check how a phrase would be handled
  voicetyper classify exclamation paint
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogger)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default from LOG_LEVEL or info)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human readable logs")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON (for piping)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(commandsCmd)
	rootCmd.AddCommand(classifyCmd)
}

func initLogger() {
	observability.InitLogger(effectiveLogLevel(), logPretty || config.GetEnv("LOG_PRETTY", "") == "true")
}

func effectiveLogLevel() string {
	if logLevel != "" {
		return logLevel
	}
	return config.GetEnv("LOG_LEVEL", "info")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
