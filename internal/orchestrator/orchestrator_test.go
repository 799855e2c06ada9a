package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/oedr/internal/config"
	"github.com/antigravity-dev/oedr/internal/fetch"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/judge"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/search"
)

type stubSearch struct{ results []search.Result }

func (s *stubSearch) Search(context.Context, string, int) ([]search.Result, error) {
	return s.results, nil
}

type stubFetcher struct{ page fetch.Page }

func (f *stubFetcher) Fetch(context.Context, string) (fetch.Page, error) {
	return f.page, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ArtifactsDir:       t.TempDir(),
		FetchConcurrency:   2,
		MaxPlannerSteps:    6,
		MaxRetries:         2,
		StagnationLimit:    2,
		MinEvidence:        1,
		MaxURLsPerQuery:    5,
		MaxResultsPerQ:     5,
		WriteLevel:         1,
		MaxCharsPerSection: 2000,
		MaxStepsPerSection: 3,
	}
}

func TestRunProducesCompletedReport(t *testing.T) {
	cfg := testConfig(t)
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: `<tool_call>{"name":"search","arguments":{"queries":["q"]}}</tool_call>`},
			{Content: `<tool_call>{"name":"search","arguments":{"urls":["https://example.com/a"]}}</tool_call>`},
			{Content: "the page covers a notable finding relevant to the query."},
			{Content: `[]`},
			{Content: "<write_outline># Overview <citation>ev_0001</citation>\n- finding <citation>ev_0001</citation></write_outline>"},
			{Content: "<write>The topic has a notable finding.[^ev_0001]</write>"},
		},
	}
	stub := &stubSearch{results: []search.Result{{Title: "A", URL: "https://example.com/a", Snippet: "snippet"}}}
	fetcher := &stubFetcher{page: fetch.Page{URL: "https://example.com/a", Title: "A", Text: "substantial extracted body text", MIME: "text/html"}}

	o := New(cfg, mock, stub, fetcher, judge.NopJudge{}, nil)
	result, err := o.Run(context.Background(), "quantum teleportation")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	require.NotEmpty(t, result.ReportPath)

	body, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "notable finding")
	assert.Contains(t, string(body), "## References")

	outlinePath := filepath.Join(cfg.ArtifactsDir, "run_"+result.RunID, "outline.md")
	assert.FileExists(t, outlinePath)
}

func TestRunEmitsPartialReportOnPlannerTermination(t *testing.T) {
	cfg := testConfig(t)
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "<terminate>query is nonsensical</terminate>"},
		},
	}
	o := New(cfg, mock, &stubSearch{}, &stubFetcher{}, judge.NopJudge{}, nil)
	result, err := o.Run(context.Background(), "asdkjasd")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)
	assert.Contains(t, result.Reason, "nonsensical")
	require.NotEmpty(t, result.ReportPath)

	body, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Insufficient evidence gathered")
}

func TestRunEmitsPartialReportWhenWriterExhausts(t *testing.T) {
	cfg := testConfig(t)
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: `<tool_call>{"name":"search","arguments":{"urls":["https://example.com/a"]}}</tool_call>`},
			{Content: "the page covers a notable finding relevant to the query."},
			{Content: `[]`},
			{Content: "<write_outline># Overview <citation>ev_0001</citation>\n- finding <citation>ev_0001</citation></write_outline>"},
			// No further responses queued: the Writer's first section-loop
			// call will exhaust the mock and surface a genuine (non-protocol)
			// error.
		},
	}
	stub := &stubSearch{}
	fetcher := &stubFetcher{page: fetch.Page{URL: "https://example.com/a", Title: "A", Text: "substantial extracted body text", MIME: "text/html"}}

	o := New(cfg, mock, stub, fetcher, judge.NopJudge{}, nil)
	result, err := o.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)

	body, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<!-- incomplete -->")
}

func TestContinueOnFinishedRunIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: `<tool_call>{"name":"search","arguments":{"urls":["https://example.com/a"]}}</tool_call>`},
			{Content: "the page covers a notable finding relevant to the query."},
			{Content: `[]`},
			{Content: "<write_outline># Overview <citation>ev_0001</citation>\n- finding <citation>ev_0001</citation></write_outline>"},
			{Content: "<write>Finding.[^ev_0001]</write>"},
		},
	}
	stub := &stubSearch{}
	fetcher := &stubFetcher{page: fetch.Page{URL: "https://example.com/a", Title: "A", Text: "substantial extracted body text", MIME: "text/html"}}

	o := New(cfg, mock, stub, fetcher, judge.NopJudge{}, nil)
	first, err := o.Run(context.Background(), "query")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	eventsBefore, err := o.Replay(first.RunID)
	require.NoError(t, err)

	second, err := o.Continue(context.Background(), first.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, second.Status)

	eventsAfter, err := o.Replay(first.RunID)
	require.NoError(t, err)
	assert.Len(t, eventsAfter, len(eventsBefore))
}

func TestReplayReturnsJournaledEventsInOrder(t *testing.T) {
	cfg := testConfig(t)
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "<terminate>giving up</terminate>"},
		},
	}
	o := New(cfg, mock, &stubSearch{}, &stubFetcher{}, judge.NopJudge{}, nil)
	result, err := o.Run(context.Background(), "query")
	require.NoError(t, err)

	events, err := o.Replay(result.RunID)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, journal.KindRunStarted, events[0].Kind)
	assert.Equal(t, journal.KindRunFinished, events[len(events)-1].Kind)
}
