package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/fetch"
)

// runSearch executes one Search tool_call: query mode issues web searches
// and returns a snippet digest (stage 1 of the spec's two-stage URL
// filter); URL mode fetches and extracts each URL concurrently, bounded by
// FetchConcurrency, and adds accepted pages to the Evidence Bank (stage 2 -
// the fetcher rejects pages that fail MIME/length checks). A single URL's
// failure never aborts the round (spec §4.3 "never aborts run on single
// sub-call failure"); it is reported back to the model as part of the
// observation instead.
func (p *Planner) runSearch(ctx context.Context, query string, args searchArgs) string {
	var sb strings.Builder

	if len(args.Queries) > 0 {
		sb.WriteString(p.runQueries(ctx, args.Queries))
	}
	if len(args.URLs) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.runFetches(ctx, query, args.URLs))
	}
	if sb.Len() == 0 {
		return "search tool_call had neither queries nor urls; nothing was done"
	}
	return sb.String()
}

func (p *Planner) runQueries(ctx context.Context, queries []string) string {
	var sb strings.Builder
	for _, q := range queries {
		results, err := p.search.Search(ctx, q, p.cfg.MaxResultsPerQuery)
		if err != nil {
			fmt.Fprintf(&sb, "query %q failed: %v\n", q, err)
			continue
		}
		fmt.Fprintf(&sb, "query %q returned %d results:\n", q, len(results))
		for i, r := range results {
			if i >= p.cfg.MaxURLsPerQuery {
				fmt.Fprintf(&sb, "  ... %d more results truncated\n", len(results)-i)
				break
			}
			fmt.Fprintf(&sb, "  - %s | %s | %s\n", r.URL, r.Title, truncateSnippet(r.Snippet, 160))
		}
	}
	return sb.String()
}

type fetchOutcome struct {
	url  string
	evID string
	err  error
}

func (p *Planner) runFetches(ctx context.Context, query string, urls []string) string {
	limit := p.cfg.FetchConcurrency
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]fetchOutcome, len(urls))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	var mu sync.Mutex
	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		group.Go(func() error {
			page, err := p.fetcher.Fetch(gctx, rawURL)
			if err != nil {
				mu.Lock()
				outcomes[i] = fetchOutcome{url: rawURL, err: err}
				mu.Unlock()
				return nil
			}

			// Two LLM calls distill the raw page into a query-relevant
			// summary and structured evidence items before anything is
			// committed to the Bank (spec §4.3 "for each surviving page,
			// call the LLM twice... insert via C4").
			summary, err := p.summarizePage(gctx, query, page)
			if err != nil {
				mu.Lock()
				outcomes[i] = fetchOutcome{url: rawURL, err: fmt.Errorf("summarize: %w", err)}
				mu.Unlock()
				return nil
			}
			items := p.extractItems(gctx, query, page)

			id, err := p.bank.Add(evidence.Draft{
				Query:   query,
				Source:  evidence.Source{URL: rawURL, Title: page.Title},
				Summary: summary,
				Items:   items,
				RawText: page.Text,
			})
			mu.Lock()
			outcomes[i] = fetchOutcome{url: rawURL, evID: id, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	var sb strings.Builder
	sb.WriteString("fetch results:\n")
	for _, o := range outcomes {
		if o.err != nil {
			fmt.Fprintf(&sb, "  - %s | rejected: %v\n", o.url, o.err)
			continue
		}
		fmt.Fprintf(&sb, "  - %s | added as %s\n", o.url, o.evID)
	}
	return sb.String()
}

func truncateSnippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
