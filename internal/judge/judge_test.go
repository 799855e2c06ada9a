package judge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/oedr/internal/llm"
)

func validRubricJSON() string {
	return `{"InstructionFollowing": {"rating": 8, "justification": "on topic"},
"Depth": {"rating": 7, "justification": "reasonable"},
"Balance": {"rating": 6, "justification": "uneven"},
"Breadth": {"rating": 9, "justification": "wide"},
"Support": {"rating": 8, "justification": "well cited"},
"Insightfulness": {"rating": 5, "justification": "mostly expected"}}`
}

func TestLLMJudgeDecodesCompleteRubric(t *testing.T) {
	mock := &llm.MockClient{ModelName: "test", Responses: []llm.Response{{Content: validRubricJSON()}}}
	j := NewLLMJudge(mock)
	result, err := j.Judge(context.Background(), "query", "# Outline")
	require.NoError(t, err)
	assert.Empty(t, result.Error)
	require.Len(t, result.Scores, len(Criteria))
	assert.Equal(t, 8, result.Scores[InstructionFollowing].Rating)
}

func TestLLMJudgeDegradesOnMalformedJSON(t *testing.T) {
	mock := &llm.MockClient{ModelName: "test", Responses: []llm.Response{{Content: "not json at all"}}}
	j := NewLLMJudge(mock)
	result, err := j.Judge(context.Background(), "query", "# Outline")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Scores)
}

func TestLLMJudgeDegradesOnMissingCriterion(t *testing.T) {
	mock := &llm.MockClient{ModelName: "test", Responses: []llm.Response{{Content: `{"InstructionFollowing": {"rating": 5, "justification": "x"}}`}}}
	j := NewLLMJudge(mock)
	result, err := j.Judge(context.Background(), "query", "# Outline")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Error)
}

func TestLLMJudgePropagatesClientError(t *testing.T) {
	mock := &llm.MockClient{ModelName: "test", Errors: []error{assertError("boom")}}
	j := NewLLMJudge(mock)
	_, err := j.Judge(context.Background(), "query", "# Outline")
	assert.Error(t, err)
}

func TestNopJudgeReturnsEmptyJudgement(t *testing.T) {
	result, err := (NopJudge{}).Judge(context.Background(), "query", "# Outline")
	require.NoError(t, err)
	assert.Empty(t, result.Scores)
	assert.Empty(t, result.Error)
}

type assertError string

func (e assertError) Error() string { return string(e) }
