package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lexiqai/voice-typer/internal/audio"
	"github.com/lexiqai/voice-typer/internal/bootstrap"
	"github.com/lexiqai/voice-typer/internal/config"
)

var listDevices bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and audio capture",
	Long: `Validate the configuration the daemon would start with and report
whether the selected audio backend can run. With --devices, list the
PortAudio input devices as well.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&listDevices, "devices", false, "list audio input devices")
}

// CheckResult is the machine readable output of check.
type CheckResult struct {
	Valid          bool                `json:"valid"`
	Problems       []string            `json:"problems,omitempty"`
	AudioBackend   string              `json:"audio_backend"`
	AudioAvailable bool                `json:"audio_available"`
	AudioError     string              `json:"audio_error,omitempty"`
	Commands       int                 `json:"commands"`
	Devices        []audio.InputDevice `json:"devices,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	result := CheckResult{Valid: true, AudioBackend: cfg.AudioBackend}

	var verr *config.ValidationError
	if err := cfg.Validate(); errors.As(err, &verr) {
		result.Valid = false
		result.Problems = verr.Problems
	}

	if entries, err := bootstrap.LoadCommands(cfg); err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err.Error())
	} else {
		result.Commands = len(entries)
	}

	ok, err := bootstrap.AudioAvailable(cfg)
	result.AudioAvailable = ok
	if err != nil {
		result.AudioError = err.Error()
	}

	if listDevices {
		devices, err := audio.ListInputDevices()
		if err != nil {
			return fmt.Errorf("failed to list input devices: %w", err)
		}
		result.Devices = devices
	}

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printCheck(cmd, result)
	}

	if !result.Valid {
		return errors.New("configuration is invalid")
	}
	return nil
}

func printCheck(cmd *cobra.Command, r CheckResult) {
	out := cmd.OutOrStdout()
	if r.Valid {
		fmt.Fprintln(out, "Configuration: ok")
	} else {
		fmt.Fprintln(out, "Configuration: invalid")
		for _, p := range r.Problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}
	fmt.Fprintf(out, "Commands: %d\n", r.Commands)
	if r.AudioAvailable {
		fmt.Fprintf(out, "Audio (%s): ok\n", r.AudioBackend)
	} else {
		fmt.Fprintf(out, "Audio (%s): %s\n", r.AudioBackend, r.AudioError)
	}

	if len(r.Devices) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEFAULT\tNAME\tHOST API\tCHANNELS\tSAMPLE RATE")
	for _, d := range r.Devices {
		mark := ""
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.0f\n", mark, d.Name, d.HostAPI, d.MaxInputChannels, d.DefaultSampleRate)
	}
	w.Flush()
}
