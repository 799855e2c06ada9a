package main

import (
	"fmt"
	"time"

	"github.com/antigravity-dev/oedr/internal/logging"
	"github.com/antigravity-dev/oedr/internal/orchestrator"
)

// printResult reports a run's outcome the way the teacher's runSinglePrompt
// reports completion: duration plus a status line, styled by outcome.
func printResult(result orchestrator.Result, elapsed time.Duration, logger logging.Logger) {
	logger.Debug("run %s finished: status=%s", result.RunID, result.Status)

	switch result.Status {
	case orchestrator.StatusCompleted:
		fmt.Printf("%s completed in %s\n", green("done"), formatDuration(elapsed))
		fmt.Printf("  %s %s\n", bold("run:"), result.RunID)
		fmt.Printf("  %s %s\n", bold("report:"), result.ReportPath)
	case orchestrator.StatusPartial:
		fmt.Printf("%s partial report after %s: %s\n", yellow("partial"), formatDuration(elapsed), result.Reason)
		fmt.Printf("  %s %s\n", bold("run:"), result.RunID)
		if result.ReportPath != "" {
			fmt.Printf("  %s %s\n", bold("report:"), result.ReportPath)
		}
		fmt.Printf("  %s oedr continue %s\n", gray("resume with:"), result.RunID)
	default:
		fmt.Printf("%s after %s: %s\n", red("fatal"), formatDuration(elapsed), result.Reason)
		fmt.Printf("  %s %s\n", bold("run:"), result.RunID)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

// exitForStatus converts a terminal run Status into the process exit code
// spec §6 requires. printResult has already reported the outcome in full,
// so Err is left nil: main only prints a message for errors that were
// never shown to the user.
func exitForStatus(result orchestrator.Result) error {
	code := statusExitCode(result.Status)
	if code == 0 {
		return nil
	}
	return &ExitCodeError{Code: code}
}
