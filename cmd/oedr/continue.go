package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newContinueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "continue <run_id>",
		Short: "Resume a run from its event journal",
		Long:  "continue replays a run's events.jsonl, reconstructs where the Planner and Writer left off, and picks up from there. Continuing an already-finished run is a no-op.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			orch, logger, err := buildOrchestrator(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("%s resuming run %s\n", cyan("▸"), runID)
			start := time.Now()

			result, err := orch.Continue(cmd.Context(), runID)
			if err != nil {
				return err
			}

			printResult(result, time.Since(start), logger)
			return exitForStatus(result)
		},
	}
}
