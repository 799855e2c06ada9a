package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/outline"
	"github.com/antigravity-dev/oedr/internal/planner"
	"github.com/antigravity-dev/oedr/internal/writer"
)

const incompleteMarker = "<!-- incomplete -->\n"

// Run allocates a fresh run directory and drives Planner then Writer to
// completion (spec §4.5 control flow).
func (o *Orchestrator) Run(ctx context.Context, query string) (Result, error) {
	runID := NewRunID()
	dir := o.runDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
	}
	return o.execute(ctx, runID, dir, query, false)
}

// Continue resumes an existing run by replaying its journal, then picking
// up wherever the prior attempt left off (spec §4.5 resume protocol).
func (o *Orchestrator) Continue(ctx context.Context, runID string) (Result, error) {
	dir := o.runDir(runID)
	if _, err := os.Stat(dir); err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: fmt.Sprintf("run directory not found: %v", err)}, nil
	}
	return o.execute(ctx, runID, dir, "", true)
}

func (o *Orchestrator) execute(ctx context.Context, runID, dir, query string, resuming bool) (Result, error) {
	logger := o.logger.With("run:" + runID)

	if o.cfg.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.GlobalTimeout)
		defer cancel()
	}

	bankDir := filepath.Join(dir, "evidence_bank")
	j, events, err := journal.Open(dir, runID)
	if err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
	}

	var bankHook evidence.Hook = func(ev evidence.Evidence) {
		_, _ = j.Append(journal.KindEvidenceAdded, map[string]string{"id": ev.ID, "url": ev.Source.URL})
	}
	bank, err := evidence.Open(bankDir, bankHook)
	if err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
	}

	if !resuming {
		_, _ = j.Append(journal.KindRunStarted, map[string]string{"query": query})
	} else if ev, ok := journal.LastOfKind(events, journal.KindRunStarted); ok {
		var payload struct {
			Query string `json:"query"`
		}
		_ = journal.Decode(ev, &payload)
		query = payload.Query
	}

	// Continuing an already-finished run is a no-op (spec §8): it produces
	// no new events, and reports the run's prior outcome.
	if resuming {
		if finishedEv, ok := journal.LastOfKind(events, journal.KindRunFinished); ok {
			var payload struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			}
			_ = journal.Decode(finishedEv, &payload)
			return Result{RunID: runID, Status: Status(payload.Status), Reason: payload.Reason, ReportPath: filepath.Join(dir, "report.md")}, nil
		}
	}

	var tree *outline.Node
	var insufficientReason string
	plannerDone := journal.HasKind(events, journal.KindPlannerTerminated)
	if outlineEv, ok := journal.LastOfKind(events, journal.KindOutlineUpdated); ok {
		var payload struct {
			Markdown string `json:"markdown"`
		}
		if err := journal.Decode(outlineEv, &payload); err == nil && payload.Markdown != "" {
			if parsed, err := outline.Parse(payload.Markdown); err == nil {
				tree = parsed
			}
		}
	}

	if tree == nil && !plannerDone {
		p := planner.New(o.plannerConfig(logger), o.llm, o.search, o.fetcher, bank, j)
		result, err := p.Run(ctx, query)
		if err != nil {
			_, _ = j.Append(journal.KindRunFinished, map[string]string{"status": string(StatusFatal), "reason": err.Error()})
			return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
		}
		if result.Terminated && result.Outline == nil {
			// The Planner gave up without ever emitting an outline (e.g.
			// stagnation on an empty-evidence query). The Writer still runs,
			// against a synthetic single-section outline with no citations,
			// so report.md always exists (spec §8 scenario 1: "Writer
			// produces a 1-section report stating 'Insufficient evidence
			// gathered.'"). The run still finishes StatusPartial.
			tree = insufficientEvidenceOutline(result.Reason)
			insufficientReason = result.Reason
		} else {
			tree = result.Outline
		}
	}

	if tree == nil {
		reason := "no outline available to resume from"
		_, _ = j.Append(journal.KindRunFinished, map[string]string{"status": string(StatusPartial), "reason": reason})
		return Result{RunID: runID, Status: StatusPartial, Reason: reason}, nil
	}

	if err := os.WriteFile(filepath.Join(dir, "outline.md"), []byte(outline.Render(tree)), 0o644); err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
	}

	w := writer.New(o.writerConfig(logger), o.llm, bank, j)
	nodes := outline.NodesAtLevel(tree, o.cfg.WriteLevel)
	if len(nodes) == 0 {
		nodes = outline.Leaves(tree)
	}
	if resumeAfter, ok := journal.LastOfKind(events, journal.KindSectionWritten); ok {
		var payload struct {
			NodeID string `json:"node_id"`
		}
		if err := journal.Decode(resumeAfter, &payload); err == nil {
			nodes = writer.ResumeFrom(nodes, payload.NodeID)
		}
	}

	report, _, werr := w.WriteNodes(ctx, nodes)
	reportPath := filepath.Join(dir, "report.md")

	if werr != nil {
		partial := incompleteMarker + report
		_ = os.WriteFile(reportPath, []byte(partial), 0o644)
		_, _ = j.Append(journal.KindWriterTerminated, map[string]string{"reason": werr.Error()})
		_, _ = j.Append(journal.KindRunFinished, map[string]string{"status": string(StatusPartial), "reason": werr.Error()})
		return Result{RunID: runID, Status: StatusPartial, ReportPath: reportPath, Reason: werr.Error()}, nil
	}

	if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
		return Result{RunID: runID, Status: StatusFatal, Reason: err.Error()}, nil
	}

	if insufficientReason != "" {
		_, _ = j.Append(journal.KindRunFinished, map[string]string{"status": string(StatusPartial), "reason": insufficientReason})
		return Result{RunID: runID, Status: StatusPartial, ReportPath: reportPath, Reason: insufficientReason}, nil
	}

	o.writeJudgement(ctx, dir, query, outline.Render(tree))

	_, _ = j.Append(journal.KindRunFinished, map[string]string{"status": string(StatusCompleted)})
	return Result{RunID: runID, Status: StatusCompleted, ReportPath: reportPath}, nil
}

// insufficientEvidenceOutline builds the synthetic 1-section outline used
// when the Planner terminates without ever emitting one (spec §8 scenario
// 1). It carries no citations, so the Writer takes the zero-citation
// boundary path and produces prose acknowledging the gap rather than
// fabricating sources.
func insufficientEvidenceOutline(reason string) *outline.Node {
	root := outline.New()
	root.Children = []*outline.Node{
		{Title: "Insufficient Evidence", Level: 1, Bullets: []string{
			fmt.Sprintf("Insufficient evidence gathered: %s", reason),
		}},
	}
	outline.AssignIDs(root)
	return root
}

func (o *Orchestrator) writeJudgement(ctx context.Context, dir, query, outlineMarkdown string) {
	result, err := o.judge.Judge(ctx, query, outlineMarkdown)
	if err != nil {
		o.logger.Warn("outline judge call failed: %v", err)
		return
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, "outline_judgement.json"), body, 0o644)
}
