package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/fetch"
	"github.com/antigravity-dev/oedr/internal/llm"
)

// summarizePage asks the LLM for a query-relevant summary of a fetched page
// (spec §4.3's first of the two per-page distillation calls). A failure
// here is treated the same as a fetch failure: it fails only this URL, not
// the whole search round.
func (p *Planner) summarizePage(ctx context.Context, query string, page fetch.Page) (string, error) {
	resp, err := p.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: summarizeSystemPrompt()},
			{Role: "user", Content: pageDistillPrompt(query, page)},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// extractItems asks the LLM to pull structured evidence items (quotes,
// data points, definitions, claims, cases) out of a fetched page (spec
// §4.3's second distillation call, §3 "items: ordered list of {type,
// content, location, confidence}"). A malformed or empty extraction
// degrades to no items rather than failing the fetch: Items is supporting
// detail, the Summary is the record a missing extraction can't invalidate.
func (p *Planner) extractItems(ctx context.Context, query string, page fetch.Page) []evidence.Item {
	resp, err := p.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: itemsSystemPrompt()},
			{Role: "user", Content: pageDistillPrompt(query, page)},
		},
		Temperature: 0,
	})
	if err != nil {
		p.logger().Warn("item extraction call failed for %q: %v", page.URL, err)
		return nil
	}

	raw := itemsJSONPattern.FindString(resp.Content)
	if raw == "" {
		return nil
	}
	var items []evidence.Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		p.logger().Warn("item extraction for %q returned malformed JSON: %v", page.URL, err)
		return nil
	}
	return items
}

var itemsJSONPattern = regexp.MustCompile(`(?s)\[.*\]`)

const maxPageCharsForDistillation = 6000

func pageDistillPrompt(query string, page fetch.Page) string {
	body := page.Text
	if len(body) > maxPageCharsForDistillation {
		body = body[:maxPageCharsForDistillation] + "..."
	}
	return fmt.Sprintf("Research query: %s\n\nPage title: %s\nPage URL: %s\nPage text:\n%s", query, page.Title, page.URL, body)
}

func summarizeSystemPrompt() string {
	return `You distill one fetched web page into a concise summary for a research
evidence bank. Write 2-4 sentences covering only what on this page is
relevant to the research query. Plain prose, no headings, no JSON.`
}

func itemsSystemPrompt() string {
	return `You extract structured evidence items from one fetched web page for a
research evidence bank. Return a JSON array (and nothing else) of objects
shaped {"type": "...", "content": "...", "location": "...", "confidence": 0.0}.

  type       one of: quote, data, definition, claim, case
  content    the fact or quotation itself, concise and self-contained
  location   a short locator within the page (section heading, paragraph
             number, "abstract"), or "" if none is evident
  confidence 0.0-1.0, how confident you are this is accurately extracted

Only include items relevant to the research query. Return [] if the page
has nothing worth extracting as a discrete item.`
}
