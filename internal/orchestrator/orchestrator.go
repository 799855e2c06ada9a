// Package orchestrator implements the run-sequencing component of
// spec.md C10: it allocates a run directory, initializes the Evidence Bank
// and Event Journal, sequences Planner then Writer, enforces the global
// wall-clock budget, and writes the run's final artifacts.
//
// Grounded on the teacher's cmd/task-orchestrator/main.go (spec/job
// loading, sequenced engine invocation, slog wiring) generalized from a
// single-shot CLI entrypoint into a reusable orchestrator type the CLI
// commands (run/continue/replay) all drive, and on
// internal/agent/domain/react/checkpoint_test.go's save/load/delete
// checkpoint shape, generalized here to full event-log replay instead of a
// single checkpoint blob.
package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/antigravity-dev/oedr/internal/config"
	"github.com/antigravity-dev/oedr/internal/fetch"
	"github.com/antigravity-dev/oedr/internal/judge"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/logging"
	"github.com/antigravity-dev/oedr/internal/planner"
	"github.com/antigravity-dev/oedr/internal/search"
	"github.com/antigravity-dev/oedr/internal/writer"
)

// Status is the terminal state of a run, driving the CLI's exit code
// (spec §6: "exit 0 on success, 2 on partial report, 1 on fatal").
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFatal     Status = "fatal"
)

// Result summarizes one run invocation (fresh, continued, or replayed).
type Result struct {
	RunID      string
	Status     Status
	ReportPath string
	Reason     string
}

// Orchestrator owns the external collaborators and sequences one run at a
// time; it holds no per-run state itself (spec §9: run state lives in the
// run directory, not in the process).
type Orchestrator struct {
	cfg     config.Config
	llm     llm.Client
	search  search.Provider
	fetcher fetch.Fetcher
	judge   judge.Judge
	logger  logging.Logger
}

func New(cfg config.Config, llmClient llm.Client, searchProvider search.Provider, fetcher fetch.Fetcher, j judge.Judge, logger logging.Logger) *Orchestrator {
	if j == nil {
		j = judge.NopJudge{}
	}
	return &Orchestrator{cfg: cfg, llm: llmClient, search: searchProvider, fetcher: fetcher, judge: j, logger: logging.OrNop(logger)}
}

// NewRunID allocates a run_id as "<utc_timestamp>_<8hex>" (spec §3). The
// 8 hex suffix is the first 8 hex digits of a fresh UUIDv4, trading global
// uniqueness guarantees we don't need for a source the rest of the pack
// already reaches for when it needs a short opaque ID.
func NewRunID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	ts := time.Now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s_%s", ts, suffix)
}

func (o *Orchestrator) runDir(runID string) string {
	return filepath.Join(o.cfg.ArtifactsDir, "run_"+runID)
}

func (o *Orchestrator) plannerConfig(logger logging.Logger) planner.Config {
	return planner.Config{
		MaxSteps:           o.cfg.MaxPlannerSteps,
		MaxRetries:         o.cfg.MaxRetries,
		StagnationLimit:    o.cfg.StagnationLimit,
		MinEvidence:        o.cfg.MinEvidence,
		MaxURLsPerQuery:    o.cfg.MaxURLsPerQuery,
		MaxResultsPerQuery: o.cfg.MaxResultsPerQ,
		FetchConcurrency:   o.cfg.FetchConcurrency,
		Logger:             logger.With("planner"),
	}
}

func (o *Orchestrator) writerConfig(logger logging.Logger) writer.Config {
	return writer.Config{
		WriteLevel:         o.cfg.WriteLevel,
		MaxCharsPerSection: o.cfg.MaxCharsPerSection,
		MaxStepsPerSection: o.cfg.MaxStepsPerSection,
		MaxRetries:         o.cfg.MaxRetries,
		ReuseEvidence:      o.cfg.ReuseEvidence,
		Logger:             logger.With("writer"),
	}
}
