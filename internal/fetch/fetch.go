// Package fetch defines the Page Fetcher/Parser external collaborator
// (spec.md C3) and ships an HTTP+readability implementation: it retrieves a
// URL, strips chrome (nav/script/style/footer) with goquery, and rejects
// pages that fail the second stage of the Planner's two-stage URL filter
// (spec §4.3: "LLM keep-list, then fetcher rejection on MIME/length").
//
// PuerkitoBio/goquery is the teacher's dependency for exactly this kind of
// DOM-shaped text extraction (go.mod); the retrieved pack did not keep a
// call site, so this is a fresh application of it rather than an adapted
// file, noted in DESIGN.md.
package fetch

import "context"

// Page is one successfully fetched and extracted document.
type Page struct {
	URL   string
	Title string
	Text  string
	MIME  string
}

// Fetcher retrieves and extracts readable text from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}
