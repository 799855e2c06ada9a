// Command oedr runs the open-ended deep research engine's Planner/Writer
// pipeline from the command line: `run` starts a fresh research run,
// `continue` resumes one that stopped partway, and `replay` streams a run's
// recorded event log back to stdout.
//
// Grounded on the teacher's cmd/cobra_cli.go root-command-with-subcommands
// shape (NewRootCommand wiring persistent flags, viper config discovery,
// and one AddCommand per verb), generalized from an interactive coding
// assistant's REPL entrypoint to a batch research runner with no
// interactive mode of its own.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		var exitErr *ExitCodeError
		if asExitCodeError(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, red("error:"), exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

// NewRootCommand assembles the oedr root command and its subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "oedr",
		Short:         "Open-ended deep research engine",
		Long:          "oedr drives a Planner/Writer agent pair that researches a query end to end and writes a cited Markdown report.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "text", "log format: text|json")

	root.AddCommand(newRunCommand())
	root.AddCommand(newContinueCommand())
	root.AddCommand(newReplayCommand())
	root.AddCommand(newVersionCommand())

	return root
}
