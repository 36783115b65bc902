package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lexiqai/voice-typer/internal/bootstrap"
	cmds "github.com/lexiqai/voice-typer/internal/commands"
	"github.com/lexiqai/voice-typer/internal/config"
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the effective voice command table",
	Long: `Print the voice command table in matching order: the built-in
commands, then CUSTOM_COMMANDS, then COMMANDS_FILE. A custom phrase that
repeats a built-in one replaces its action in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		entries := table.Entries()

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PHRASE\tACTION")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.Phrase, e.Action)
		}
		return w.Flush()
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Show how a final transcript would be handled",
	Long: `Run the command matcher on text offline. The result is either a
command with the matched phrase, action and similarity, or plain text.

Example:
  voicetyper classify exclamation paint`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}
		parsed := cmds.NewMatcher(table).Classify(strings.Join(args, " "))

		if outputJSON {
			return writeJSON(cmd.OutOrStdout(), parsed)
		}
		out := cmd.OutOrStdout()
		if !parsed.IsCommand() {
			fmt.Fprintf(out, "text: %q\n", parsed.Text)
			return nil
		}
		fmt.Fprintf(out, "command: %s (phrase %q, similarity %.2f)\n", parsed.Action, parsed.Phrase, parsed.Similarity)
		return nil
	},
}

func loadTable() (*cmds.Table, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	entries, err := bootstrap.LoadCommands(cfg)
	if err != nil {
		return nil, err
	}
	return cmds.NewTable(entries...), nil
}
