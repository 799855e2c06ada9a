package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antigravity-dev/oedr/internal/errs"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider scrapes DuckDuckGo's no-JS HTML results page, grounded
// on the teacher's use of PuerkitoBio/goquery for DOM extraction elsewhere
// in the module (readability parsing follows the same pattern in
// internal/fetch).
type DuckDuckGoProvider struct {
	endpoint string
	http     *http.Client
}

func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{endpoint: duckDuckGoEndpoint, http: &http.Client{Timeout: 30 * time.Second}}
}

func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("search: build duckduckgo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; oedr-research-agent/1.0)")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: duckduckgo request: %v", errs.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: duckduckgo http %d", errs.ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: duckduckgo http %d", errs.ErrFatal, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse duckduckgo html: %v", errs.ErrFatal, err)
	}

	var out []Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(out) >= topK {
			return false
		}
		link := sel.Find(".result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find(".result__snippet").First().Text())
		if href == "" || title == "" {
			return true
		}
		out = append(out, Result{Title: title, URL: resolveDuckDuckGoRedirect(href), Snippet: snippet})
		return true
	})
	return out, nil
}

// resolveDuckDuckGoRedirect unwraps DuckDuckGo's "/l/?uddg=<encoded>"
// tracking redirect, returning the real destination URL when present.
func resolveDuckDuckGoRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	if u.IsAbs() {
		return href
	}
	return "https://duckduckgo.com" + href
}
