package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/antigravity-dev/oedr/internal/llm"
)

// LLMJudge scores an outline by asking an llm.Client to fill in the fixed
// rubric as a JSON object and decoding the result.
type LLMJudge struct {
	client llm.Client
}

func NewLLMJudge(client llm.Client) *LLMJudge {
	return &LLMJudge{client: client}
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func (j *LLMJudge) Judge(ctx context.Context, query, outlineMarkdown string) (Judgement, error) {
	resp, err := j.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: rubricPrompt()},
			{Role: "user", Content: fmt.Sprintf("Query:\n%s\n\nOutline:\n%s", query, outlineMarkdown)},
		},
		Temperature: 0,
	})
	if err != nil {
		return Judgement{}, err
	}

	raw := jsonObjectPattern.FindString(resp.Content)
	if raw == "" {
		return Judgement{Error: "judge response contained no JSON object"}, nil
	}

	var decoded map[string]Score
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Judgement{Error: fmt.Sprintf("judge response was not valid JSON: %v", err)}, nil
	}

	scores := make(map[Criterion]Score, len(Criteria))
	var missing []string
	for _, c := range Criteria {
		s, ok := decoded[string(c)]
		if !ok {
			missing = append(missing, string(c))
			continue
		}
		scores[c] = s
	}
	if len(missing) > 0 {
		return Judgement{Error: fmt.Sprintf("judge response missing criteria: %v", missing)}, nil
	}

	return Judgement{Scores: scores}, nil
}

func rubricPrompt() string {
	return `You are evaluating a research report outline against its query. Score
each of the following criteria from 0 (fails completely) to 10 (excellent),
with a one-sentence justification:

  InstructionFollowing - does the outline address exactly what was asked?
  Depth - does each section go beyond surface-level restatement?
  Balance - is coverage proportionate across sub-topics, no section starved or bloated?
  Breadth - does the outline cover the full scope the query implies?
  Support - is every section backed by cited evidence, not speculation?
  Insightfulness - does the outline surface non-obvious connections or framings?

Respond with exactly one JSON object, no surrounding prose:
{"InstructionFollowing": {"rating": 0, "justification": "..."}, "Depth": {...}, "Balance": {...}, "Breadth": {...}, "Support": {...}, "Insightfulness": {...}}`
}
