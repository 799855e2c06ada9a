package writer

import (
	"fmt"
	"strings"

	"github.com/antigravity-dev/oedr/internal/outline"
)

func sectionSystemPrompt(cfg Config, node *outline.Node, candidateIDs []string) string {
	return fmt.Sprintf(`You are the Writer for one section of a research report. Your section is
titled %q. You may only cite the following evidence IDs, the ones already
linked to this section and its subsections:

  %s

Each turn you must emit exactly one top-level action tag:

  <tool_call>{"name":"retrieve","arguments":{"citation_ids":["ev_0001"]}}</tool_call>
    Pull the full summary for specific evidence IDs from your candidate set.

  <tool_call>{"name":"retrieve","arguments":{"query":"...","top_k":5}}</tool_call>
    Search within your candidate set by keyword instead of by ID.

  <write>
  Markdown body for this section. Every factual claim must end with a
  [^ev_0001] style footnote matching an evidence ID you retrieved.
  </write>
    Emit your finished section body. This ends the section.

  <terminate>reason</terminate>
    Give up on this section without writing it (rare; prefer <write> with
    whatever evidence you have).

Keep the section under %d characters. You have at most %d steps.`,
		node.Title, strings.Join(candidateIDs, ", "), cfg.MaxCharsPerSection, cfg.MaxStepsPerSection)
}

// uncitedSectionPrompt drives the single direct call writeUncitedSection
// makes for a section with no linked evidence (spec §8 boundary case). No
// tool_call/retrieve loop applies: there is nothing in the candidate set to
// retrieve, so the model writes prose straight away.
func uncitedSectionPrompt(node *outline.Node) string {
	notes := ""
	if len(node.Bullets) > 0 {
		notes = fmt.Sprintf("\n\nIt must also include, verbatim, the following line(s):\n  %s", strings.Join(node.Bullets, "\n  "))
	}
	return fmt.Sprintf(`You are the Writer for one section of a research report. Your section is
titled %q. No evidence has been linked to this section or any of its
subsections, so you must not cite anything and must not invent sources.

Write a short Markdown section body (a heading followed by 2-4 sentences of
prose) that acknowledges the gap rather than fabricating support. The body
must contain, verbatim, the sentence: %q%s

Respond with the Markdown body only, nothing else.`, node.Title, noExternalSourceNote, notes)
}
