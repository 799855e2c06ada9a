// Package judge implements the Outline Judge external collaborator of
// spec.md §4.6: given a user query and a rendered outline, it scores the
// outline against a fixed criterion set. The judge is advisory only — it
// never blocks or mutates a run, and a malformed judgement degrades to an
// error record rather than failing anything.
//
// Grounded on the teacher's judge-panel scoring shape
// (internal/rag/gate: structured-output scoring against a fixed rubric
// over an llm.Client) generalized from a retrieval-gate decision to the
// spec's six-criterion outline rubric (spec §4.6 names Planner/Writer's
// own llm.Client as the collaborator, not a separate model).
package judge

import "context"

// Criterion is one of the fixed dimensions an outline is scored on.
type Criterion string

const (
	InstructionFollowing Criterion = "InstructionFollowing"
	Depth                Criterion = "Depth"
	Balance              Criterion = "Balance"
	Breadth              Criterion = "Breadth"
	Support              Criterion = "Support"
	Insightfulness       Criterion = "Insightfulness"
)

// Criteria is the fixed, ordered rubric every Judgement must cover (spec §4.6).
var Criteria = []Criterion{InstructionFollowing, Depth, Balance, Breadth, Support, Insightfulness}

// Score is one criterion's rating and rationale.
type Score struct {
	Rating        int    `json:"rating"`
	Justification string `json:"justification"`
}

// Judgement is the full rubric result, keyed by criterion name. A missing
// or malformed judgement is represented by Error being non-empty; Scores is
// nil in that case (spec §4.6 "written as {error: ...} and does not fail
// the run").
type Judgement struct {
	Scores map[Criterion]Score `json:"scores,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Judge scores an outline against the fixed criterion set. Implementations
// must never return an error for a malformed model response; they encode
// that as Judgement.Error instead, since the judge's opinion is advisory
// and must never fail the research run (spec §4.6).
type Judge interface {
	Judge(ctx context.Context, query, outlineMarkdown string) (Judgement, error)
}
