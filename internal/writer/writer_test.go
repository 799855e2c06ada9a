package writer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/outline"
)

func testConfig() Config {
	return Config{
		WriteLevel:         1,
		MaxCharsPerSection: 2000,
		MaxStepsPerSection: 5,
		MaxRetries:         2,
	}
}

func newBankAndJournal(t *testing.T) (*evidence.Bank, *journal.Journal) {
	t.Helper()
	dir := t.TempDir()
	bank, err := evidence.Open(dir+"/evidence_bank", nil)
	require.NoError(t, err)
	j, _, err := journal.Open(dir, "run1")
	require.NoError(t, err)
	return bank, j
}

func seedEvidence(t *testing.T, bank *evidence.Bank, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id, err := bank.Add(evidence.Draft{
			Query:   "q",
			Source:  evidence.Source{URL: "https://example.com/a", Title: "A paper"},
			Summary: "a finding about the topic",
			RawText: "full text goes here and is unique per record " + string(rune('a'+i)),
		})
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func treeWithOneSection(citationIDs []string) *outline.Node {
	root := outline.New()
	section := &outline.Node{Title: "Overview", Level: 1, Bullets: []string{"finding"}, Citations: citationIDs}
	root.Children = []*outline.Node{section}
	outline.AssignIDs(root)
	return root
}

func TestWriteProducesSectionWithFootnotes(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)
	tree := treeWithOneSection(ids)

	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "<write>The topic has a notable finding.[^" + ids[0] + "]</write>"},
		},
	}

	w := New(testConfig(), mock, bank, j)
	report, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Contains(t, report, "notable finding")
	assert.Contains(t, report, "## References")
	assert.Contains(t, report, ids[0])
}

func TestWriteRetrievesBeforeWriting(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)
	tree := treeWithOneSection(ids)

	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: `<tool_call>{"name":"retrieve","arguments":{"citation_ids":["` + ids[0] + `"]}}</tool_call>`},
			{Content: "<write>Summary of the finding.[^" + ids[0] + "]</write>"},
		},
	}

	w := New(testConfig(), mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, []string{ids[0]}, sections[0].UsedCitationIDs)
}

func TestWriteRejectsUnresolvedFootnote(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)
	tree := treeWithOneSection(ids)

	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "<write>Bad citation.[^ev_9999]</write>"},
			{Content: "<write>Good citation.[^" + ids[0] + "]</write>"},
		},
	}

	w := New(testConfig(), mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].MarkdownBody, "Good citation")
}

func TestWriteFallsBackToSingleTurnOnStepCeiling(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)
	tree := treeWithOneSection(ids)

	cfg := testConfig()
	cfg.MaxStepsPerSection = 1

	responses := []llm.Response{
		{Content: `<tool_call>{"name":"retrieve","arguments":{"citation_ids":["` + ids[0] + `"]}}</tool_call>`},
		{Content: "Fallback generated body.[^" + ids[0] + "]"},
	}
	mock := &llm.MockClient{ModelName: "test", Responses: responses}

	w := New(cfg, mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].MarkdownBody, "Fallback generated body")
}

func TestWriteOmitsSectionWhenNoContentGenerated(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)
	tree := treeWithOneSection(ids)

	cfg := testConfig()
	cfg.MaxStepsPerSection = 1
	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: `<tool_call>{"name":"retrieve","arguments":{"query":"anything"}}</tool_call>`},
		},
	}

	w := New(cfg, mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, sectionOmitted, sections[0].MarkdownBody)
}

func TestWriteZeroCitationSectionEmitsNoExternalSourceNote(t *testing.T) {
	bank, j := newBankAndJournal(t)
	tree := treeWithOneSection(nil)

	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "## Overview\n\nNo primary sources were gathered on this topic."},
		},
	}

	w := New(testConfig(), mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].MarkdownBody, noExternalSourceNote)
	assert.Len(t, mock.Requests, 1)
}

func TestWriteZeroCitationSectionFallsBackOnLLMError(t *testing.T) {
	bank, j := newBankAndJournal(t)
	tree := treeWithOneSection(nil)

	mock := &llm.MockClient{ModelName: "test", Responses: nil}

	w := New(testConfig(), mock, bank, j)
	_, sections, err := w.Write(context.Background(), tree)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].MarkdownBody, noExternalSourceNote)
	assert.Contains(t, sections[0].MarkdownBody, "finding")
}

func TestResumeFromSkipsCompletedSections(t *testing.T) {
	nodes := []*outline.Node{{ID: "sec_1"}, {ID: "sec_2"}, {ID: "sec_3"}}
	remaining := ResumeFrom(nodes, "sec_1")
	require.Len(t, remaining, 2)
	assert.Equal(t, "sec_2", remaining[0].ID)

	assert.Equal(t, nodes, ResumeFrom(nodes, ""))
}

func TestUsedIDsAreGlobalAcrossSections(t *testing.T) {
	bank, j := newBankAndJournal(t)
	ids := seedEvidence(t, bank, 1)

	root := outline.New()
	s1 := &outline.Node{Title: "First", Level: 1, Bullets: []string{"x"}, Citations: ids}
	s2 := &outline.Node{Title: "Second", Level: 1, Bullets: []string{"y"}, Citations: ids}
	root.Children = []*outline.Node{s1, s2}
	outline.AssignIDs(root)

	mock := &llm.MockClient{
		ModelName: "test",
		Responses: []llm.Response{
			{Content: "<write>First uses it.[^" + ids[0] + "]</write>"},
			{Content: `<tool_call>{"name":"retrieve","arguments":{"citation_ids":["` + ids[0] + `"]}}</tool_call>`},
			{Content: "<write>Second reuses it.[^" + ids[0] + "]</write>"},
		},
	}

	w := New(testConfig(), mock, bank, j)
	_, sections, err := w.Write(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, sections, 2)

	secondRequest := mock.Requests[2]
	found := false
	for _, m := range secondRequest.Messages {
		if strings.Contains(m.Content, "already used") {
			found = true
		}
	}
	assert.True(t, found, "expected second section's retrieve observation to note evidence already used")
}
