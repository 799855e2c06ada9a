package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <run_id>",
		Short: "Print a run's recorded event log",
		Long:  "replay streams every event recorded for a run, in order, to stdout as one line per event (spec §6).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := args[0]

			orch, _, err := buildOrchestrator(cmd)
			if err != nil {
				return err
			}

			events, err := orch.Replay(runID)
			if err != nil {
				return err
			}

			for _, ev := range events {
				fmt.Printf("%s  %-4d  %-20s  %s\n", ev.Timestamp.Format("15:04:05.000"), ev.Step, ev.Kind, string(ev.Payload))
			}
			return nil
		},
	}
}
