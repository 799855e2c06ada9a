// Package writer implements the Writer Agent (spec.md C8): a depth-first,
// section-by-section ReAct loop that composes the final citation-grounded
// report from an outline and an Evidence Bank.
//
// Grounded the same way as internal/planner: the teacher's
// SolveTask/think/runtime split (internal/agent/domain/react/solve.go),
// driven through internal/reactloop, with used_ids_global modeled as the
// spec's own explicit mutable data rather than anything resembling the
// teacher's shared TaskState (spec §9: "used_ids_global is explicit
// mutable data, not a side effect of garbage collection").
package writer

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/logging"
	"github.com/antigravity-dev/oedr/internal/outline"
)

// sectionOmitted is the fallback body for a section the Writer never
// produced any content for (spec §4.4).
const sectionOmitted = "<section omitted: no content generated>"

// Config bounds and tunes one Writer run (spec §4.4).
type Config struct {
	WriteLevel         int
	MaxCharsPerSection int
	MaxStepsPerSection int
	MaxRetries         int
	ReuseEvidence      bool
	Logger             logging.Logger
}

// Writer drives the Retrieve/Write/Terminate loop once per outline section.
type Writer struct {
	cfg     Config
	llm     llm.Client
	bank    *evidence.Bank
	journal *journal.Journal

	usedIDs map[string]struct{} // used_ids_global (spec §4.4, §9)
}

func New(cfg Config, llmClient llm.Client, bank *evidence.Bank, j *journal.Journal) *Writer {
	return &Writer{cfg: cfg, llm: llmClient, bank: bank, journal: j, usedIDs: make(map[string]struct{})}
}

// Section is one completed piece of the report (spec §3 ReportSection).
type Section struct {
	NodeID          string
	MarkdownBody    string
	UsedCitationIDs []string
}

// Write iterates the outline depth-first at cfg.WriteLevel, producing one
// Section per matching node, then assembles the final report with a
// References section in first-use order (spec §4.4, §6).
func (w *Writer) Write(ctx context.Context, root *outline.Node) (string, []Section, error) {
	nodes := outline.NodesAtLevel(root, w.cfg.WriteLevel)
	if len(nodes) == 0 {
		nodes = outline.Leaves(root)
	}
	return w.WriteNodes(ctx, nodes)
}

// WriteNodes writes exactly the given nodes (already filtered to the
// target write level, possibly narrowed by ResumeFrom after a resumed
// run), then assembles the final report. A failure partway through still
// returns every section successfully written so far, so the orchestrator
// can emit a partial report (spec §4.5).
func (w *Writer) WriteNodes(ctx context.Context, nodes []*outline.Node) (string, []Section, error) {
	sections := make([]Section, 0, len(nodes))
	for _, node := range nodes {
		section, err := w.writeSection(ctx, node)
		if err != nil {
			return Assemble(sections, w.bank), sections, fmt.Errorf("writer: section %s: %w", node.ID, err)
		}
		sections = append(sections, section)
		if w.journal != nil {
			_, _ = w.journal.Append(journal.KindSectionWritten, map[string]string{"node_id": node.ID})
		}
	}

	report := Assemble(sections, w.bank)
	return report, sections, nil
}

// ResumeFrom skips every node up to and including resumeAfterID, so a
// crashed run can continue writing from the first section lacking a
// section_written event (spec §4.5 resume protocol).
func ResumeFrom(nodes []*outline.Node, resumeAfterID string) []*outline.Node {
	if resumeAfterID == "" {
		return nodes
	}
	for i, n := range nodes {
		if n.ID == resumeAfterID {
			return nodes[i+1:]
		}
	}
	return nodes
}
