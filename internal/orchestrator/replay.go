package orchestrator

import (
	"fmt"
	"os"

	"github.com/antigravity-dev/oedr/internal/journal"
)

// Replay returns every event recorded for runID, in file order, for the
// CLI's `replay` command to stream to stdout (spec §6).
func (o *Orchestrator) Replay(runID string) ([]journal.Event, error) {
	dir := o.runDir(runID)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("orchestrator: run directory not found: %w", err)
	}
	_, events, err := journal.Open(dir, runID)
	if err != nil {
		return nil, err
	}
	return events, nil
}
