package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/antigravity-dev/oedr/internal/errs"
)

// RejectedError is returned when a page is retrievable but fails the
// fetcher's own acceptance rules (spec §4.3's second filter stage): wrong
// MIME type or body too short to be useful evidence.
type RejectedError struct {
	URL    string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("fetch: rejected %s: %s", e.URL, e.Reason)
}

// HTTPFetcher retrieves pages over HTTP and extracts readable text with
// goquery, caching extracted pages by URL so repeated citations of the same
// source within a run don't refetch.
type HTTPFetcher struct {
	http              *http.Client
	cache             *lru.Cache[string, Page]
	minBodyChars      int
	maxBodyBytesFetch int64
}

// NewHTTPFetcher builds a fetcher that rejects bodies shorter than
// minBodyChars after extraction (config.MinFetchBodyChars).
func NewHTTPFetcher(minBodyChars int) (*HTTPFetcher, error) {
	cache, err := lru.New[string, Page](512)
	if err != nil {
		return nil, fmt.Errorf("fetch: init cache: %w", err)
	}
	return &HTTPFetcher{
		http:              &http.Client{Timeout: 20 * time.Second},
		cache:             cache,
		minBodyChars:      minBodyChars,
		maxBodyBytesFetch: 10 * 1024 * 1024,
	}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if cached, ok := f.cache.Get(rawURL); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; oedr-research-agent/1.0)")

	resp, err := f.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: fetch %s: %v", errs.ErrTransient, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Page{}, fmt.Errorf("%w: fetch %s: http %d", errs.ErrTransient, rawURL, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, &RejectedError{URL: rawURL, Reason: fmt.Sprintf("http %d", resp.StatusCode)}
	}

	mime := firstMIMEToken(resp.Header.Get("Content-Type"))
	if mime != "" && !strings.HasPrefix(mime, "text/html") && mime != "text/plain" {
		return Page{}, &RejectedError{URL: rawURL, Reason: fmt.Sprintf("unsupported content-type %q", mime)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytesFetch))
	if err != nil {
		return Page{}, fmt.Errorf("%w: read body %s: %v", errs.ErrTransient, rawURL, err)
	}

	page, err := extractReadable(rawURL, mime, body)
	if err != nil {
		return Page{}, err
	}
	if len(page.Text) < f.minBodyChars {
		return Page{}, &RejectedError{URL: rawURL, Reason: fmt.Sprintf("extracted body too short (%d chars)", len(page.Text))}
	}

	f.cache.Add(rawURL, page)
	return page, nil
}

func firstMIMEToken(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

// extractReadable strips non-content chrome and returns the remaining text,
// mirroring a minimal readability pass (spec §4.3 "page fetcher normalizes
// to plain text before it reaches evidence summarization").
func extractReadable(url, mime string, body []byte) (Page, error) {
	if mime == "text/plain" {
		return Page{URL: url, MIME: mime, Text: normalizeWhitespace(string(body))}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return Page{}, fmt.Errorf("%w: parse html %s: %v", errs.ErrDataIntegrity, url, err)
	}

	doc.Find("script, style, nav, header, footer, aside, noscript").Remove()
	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalizeWhitespace(doc.Find("body").Text())

	return Page{URL: url, Title: title, MIME: "text/html", Text: text}, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
