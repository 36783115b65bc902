// Command voicetyper types what you say into the focused window.
//
// Usage:
//
//	voicetyper run          - run the dictation daemon and its control server
//	voicetyper check        - validate configuration and audio capture
//	voicetyper commands     - print the effective voice command table
//	voicetyper classify ... - show how a phrase would be handled
//
// Configuration is read from the environment and an optional .env file.
package main

import (
	"fmt"
	"os"

	"github.com/lexiqai/voice-typer/cmd/voicetyper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
