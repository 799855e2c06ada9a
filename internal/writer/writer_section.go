package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/outline"
	"github.com/antigravity-dev/oedr/internal/protocol"
	"github.com/antigravity-dev/oedr/internal/reactloop"
)

// retrieveArgs is the JSON payload of a Retrieve tool_call. Either
// CitationIDs (a direct pull of known evidence) or Query/TopK (a lexical
// search restricted to the section's candidate set) is supplied, not both.
// Reuse explicitly re-requests evidence already consumed by an earlier
// section, resolving the spec's open question on evidence reuse (spec §9):
// once by default (cfg.ReuseEvidence == false), reusable only when asked.
type retrieveArgs struct {
	CitationIDs []string `json:"citation_ids,omitempty"`
	Query       string   `json:"query,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Reuse       bool     `json:"reuse,omitempty"`
}

type sectionState struct {
	section Section
	written bool
}

// writeSection runs one section's ReAct loop. candidate_ids is the union of
// the node's own citations and every descendant's (spec §4.4). The loop
// gets a fresh context: it never sees other sections' transcripts.
func (w *Writer) writeSection(ctx context.Context, node *outline.Node) (Section, error) {
	candidateIDs := outline.DescendantCitations(node)

	// A section with no linked evidence at all has nothing to retrieve
	// (spec §8 boundary case: "Writer section with zero citations emits a
	// prose-only section with an explicit 'no external source supports
	// this section' note"). Handled deterministically rather than left to
	// incidental model behavior inside the ReAct loop.
	if len(candidateIDs) == 0 {
		return w.writeUncitedSection(ctx, node), nil
	}

	state := &sectionState{section: Section{NodeID: node.ID}}

	history := []llm.Message{
		{Role: "system", Content: sectionSystemPrompt(w.cfg, node, candidateIDs)},
	}

	loopCfg := reactloop.Config{
		MaxIterations:      w.cfg.MaxStepsPerSection,
		MaxProtocolRetries: w.cfg.MaxRetries,
		Logger:             w.cfg.Logger,
	}
	_, err := reactloop.Run(ctx, loopCfg, history, w.sectionStep(node, candidateIDs, state))

	if state.written {
		return state.section, nil
	}
	if err != nil && !errors.Is(err, errs.ErrBudgetExceeded) {
		return Section{}, err
	}

	// Either the step ceiling was reached or the loop returned cleanly
	// without a Write action: fall back to a single-turn generation before
	// giving up on the section entirely (spec §4.4).
	if section, ferr := w.fallbackGenerate(ctx, node, candidateIDs); ferr == nil {
		return section, nil
	}
	return Section{NodeID: node.ID, MarkdownBody: sectionOmitted}, nil
}

func (w *Writer) sectionStep(node *outline.Node, candidateIDs []string, state *sectionState) reactloop.StepFunc {
	return func(ctx context.Context, history []llm.Message, iteration int) ([]llm.Message, reactloop.Outcome, error) {
		resp, err := w.llm.Complete(ctx, llm.Request{Messages: history, Temperature: 0.3})
		if err != nil {
			return history, reactloop.Continue, err
		}
		history = append(history, llm.Message{Role: "assistant", Content: resp.Content})

		action, perr := protocol.Parse(resp.Content)
		if perr != nil {
			history = append(history, observation(perr.Error()))
			return history, reactloop.Continue, perr
		}

		switch action.Kind {
		case protocol.KindToolCall:
			return w.dispatchRetrieve(history, action, node, candidateIDs)

		case protocol.KindWrite:
			return w.dispatchWrite(history, action, node, state)

		case protocol.KindTerminate:
			return history, reactloop.Terminated, nil

		default:
			perr := errs.NewProtocolError("UnsupportedAction", fmt.Sprintf("writer cannot handle action kind %q", action.Kind))
			history = append(history, observation(perr.Error()))
			return history, reactloop.Continue, perr
		}
	}
}

func (w *Writer) dispatchRetrieve(history []llm.Message, action protocol.Action, node *outline.Node, candidateIDs []string) ([]llm.Message, reactloop.Outcome, error) {
	if action.ToolName != "retrieve" {
		perr := errs.NewProtocolError("UnknownTool", fmt.Sprintf("unknown tool %q", action.ToolName))
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}

	var args retrieveArgs
	if err := json.Unmarshal(action.ToolArgs, &args); err != nil {
		perr := errs.NewProtocolError("MalformedRetrieveArgs", err.Error())
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}

	obs, err := w.runRetrieve(args, candidateIDs)
	if err != nil {
		history = append(history, observation(err.Error()))
		return history, reactloop.Continue, err
	}
	if w.journal != nil {
		reused := false
		for _, id := range args.CitationIDs {
			if w.isUsed(id) && (w.cfg.ReuseEvidence || args.Reuse) {
				reused = true
			}
		}
		_, _ = w.journal.Append(journal.KindSectionRetrieved, map[string]any{"node_id": node.ID, "citation_ids": args.CitationIDs, "query": args.Query, "reused": reused})
	}
	history = append(history, observation(obs))
	return history, reactloop.Continue, nil
}

func (w *Writer) runRetrieve(args retrieveArgs, candidateIDs []string) (string, error) {
	inCandidates := func(id string) bool {
		for _, c := range candidateIDs {
			if c == id {
				return true
			}
		}
		return false
	}

	if len(args.CitationIDs) > 0 {
		var sb strings.Builder
		for _, id := range args.CitationIDs {
			if !inCandidates(id) {
				fmt.Fprintf(&sb, "%s: not in this section's candidate citation set, skipped\n", id)
				continue
			}
			if w.isUsed(id) && !w.cfg.ReuseEvidence && !args.Reuse {
				fmt.Fprintf(&sb, "%s: already used by an earlier section; set reuse:true to re-request it\n", id)
				continue
			}
			ev, ok := w.bank.Get(id)
			if !ok {
				return "", errs.UnresolvedCitation([]string{id})
			}
			fmt.Fprintf(&sb, "%s: %s\n  %s\n%s", ev.ID, ev.Source.Title, ev.Summary, formatItems(ev.Items))
		}
		return sb.String(), nil
	}

	if args.Query != "" {
		topK := args.TopK
		if topK <= 0 {
			topK = 5
		}
		rows := w.bank.Summaries(candidateIDs)
		matches := lexicalFilter(rows, args.Query, topK)
		var sb strings.Builder
		fmt.Fprintf(&sb, "query %q matched %d candidates:\n", args.Query, len(matches))
		for _, row := range matches {
			fmt.Fprintf(&sb, "  %s: %s\n", row.ID, row.Summary)
		}
		return sb.String(), nil
	}

	return "", errs.NewProtocolError("EmptyRetrieveArgs", "retrieve call had neither citation_ids nor query")
}

// formatItems renders an evidence record's structured items (spec §3) as
// indented lines in a citation_ids retrieve observation, so the Writer sees
// the same {type, content, location, confidence} detail the Planner
// extracted, not just the prose summary.
func formatItems(items []evidence.Item) string {
	if len(items) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, item := range items {
		loc := item.Location
		if loc == "" {
			loc = "unspecified location"
		}
		fmt.Fprintf(&sb, "  - [%s, confidence %.2f, %s] %s\n", item.Type, item.Confidence, loc, item.Content)
	}
	return sb.String()
}

// lexicalFilter ranks rows by the number of whitespace-split query terms
// that appear in their summary, highest first, and returns the top n. No
// embedding index is wired in (spec §4.4 leaves retrieval method open); this
// is a deliberately simple substring-overlap scorer over the section's
// already-small candidate set.
func lexicalFilter(rows []evidence.SummaryRow, query string, n int) []evidence.SummaryRow {
	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		row   evidence.SummaryRow
		score int
	}
	scoredRows := make([]scored, 0, len(rows))
	for _, row := range rows {
		lower := strings.ToLower(row.Summary)
		score := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				score++
			}
		}
		scoredRows = append(scoredRows, scored{row: row, score: score})
	}
	sort.SliceStable(scoredRows, func(i, j int) bool { return scoredRows[i].score > scoredRows[j].score })
	if n > len(scoredRows) {
		n = len(scoredRows)
	}
	out := make([]evidence.SummaryRow, n)
	for i := 0; i < n; i++ {
		out[i] = scoredRows[i].row
	}
	return out
}

func (w *Writer) dispatchWrite(history []llm.Message, action protocol.Action, node *outline.Node, state *sectionState) ([]llm.Message, reactloop.Outcome, error) {
	body := action.Markdown
	if len(body) > w.cfg.MaxCharsPerSection {
		body = body[:w.cfg.MaxCharsPerSection]
	}

	footnotes := protocol.ExtractFootnotes(body)
	if missing := w.bank.Exists(footnotes); len(missing) > 0 {
		perr := errs.UnresolvedCitation(missing)
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}

	for _, id := range footnotes {
		w.markUsed(id)
	}
	state.section = Section{NodeID: node.ID, MarkdownBody: body, UsedCitationIDs: footnotes}
	state.written = true
	return history, reactloop.Terminated, nil
}

func (w *Writer) isUsed(id string) bool {
	_, ok := w.usedIDs[id]
	return ok
}

func (w *Writer) markUsed(id string) {
	w.usedIDs[id] = struct{}{}
}

// fallbackGenerate asks the model once, outside the ReAct loop, to produce
// section content directly from the candidate summaries (spec §4.4).
func (w *Writer) fallbackGenerate(ctx context.Context, node *outline.Node, candidateIDs []string) (Section, error) {
	rows := w.bank.Summaries(candidateIDs)
	if len(rows) == 0 {
		return Section{}, fmt.Errorf("writer: no candidate evidence for section %s", node.ID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a concise markdown section titled %q using only the evidence below. Cite every claim with a [^ev_NNNN] footnote matching its evidence ID. Do not use any action tags, output markdown directly.\n\n", node.Title)
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s: %s\n", row.ID, row.Summary)
	}

	resp, err := w.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "user", Content: sb.String()}},
		Temperature: 0.3,
	})
	if err != nil {
		return Section{}, err
	}

	body := resp.Content
	if len(body) > w.cfg.MaxCharsPerSection {
		body = body[:w.cfg.MaxCharsPerSection]
	}
	footnotes := protocol.ExtractFootnotes(body)
	resolvable := footnotes[:0:0]
	for _, id := range footnotes {
		if _, ok := w.bank.Get(id); ok {
			resolvable = append(resolvable, id)
			w.markUsed(id)
		}
	}
	return Section{NodeID: node.ID, MarkdownBody: body, UsedCitationIDs: resolvable}, nil
}

// noExternalSourceNote is the exact sentence spec §8 requires a zero-
// citation section to contain.
const noExternalSourceNote = "No external source supports this section."

// writeUncitedSection handles a section with an empty candidate set: one
// plain LLM call, no retrieve/write/terminate loop, with the required note
// guaranteed present regardless of what the model returns. A call failure
// still yields a deterministic, valid section rather than an omission.
func (w *Writer) writeUncitedSection(ctx context.Context, node *outline.Node) Section {
	// node.Bullets carries any guaranteed lines the outline builder wants in
	// this section regardless of what the LLM produces (e.g. the synthetic
	// insufficient-evidence outline's "Insufficient evidence gathered: ..."
	// line, spec §8 scenario 1).
	required := strings.Join(node.Bullets, "\n")

	resp, err := w.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: "system", Content: uncitedSectionPrompt(node)}},
		Temperature: 0.3,
	})
	if err != nil {
		return Section{NodeID: node.ID, MarkdownBody: uncitedFallbackBody(node.Title, required)}
	}

	body := strings.TrimSpace(resp.Content)
	if len(body) > w.cfg.MaxCharsPerSection {
		body = body[:w.cfg.MaxCharsPerSection]
	}
	if !strings.Contains(body, noExternalSourceNote) {
		body = strings.TrimRight(body, "\n") + "\n\n" + noExternalSourceNote
	}
	if required != "" && !strings.Contains(body, required) {
		body = strings.TrimRight(body, "\n") + "\n\n" + required
	}
	return Section{NodeID: node.ID, MarkdownBody: body}
}

func uncitedFallbackBody(title, required string) string {
	body := fmt.Sprintf("## %s\n\n%s", title, noExternalSourceNote)
	if required != "" {
		body += "\n\n" + required
	}
	return body
}

func observation(text string) llm.Message {
	return llm.Message{Role: "user", Content: "<observation>" + text + "</observation>"}
}
