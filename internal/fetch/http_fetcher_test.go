package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchExtractsTitleAndStripsChrome(t *testing.T) {
	html := `<html><head><title>My Article</title></head><body>
		<nav>Site Nav</nav>
		<article><p>The real content goes here.</p></article>
		<footer>Copyright</footer>
	</body></html>`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(5)
	require.NoError(t, err)
	f.http = server.Client()

	page, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "My Article", page.Title)
	assert.Contains(t, page.Text, "The real content goes here.")
	assert.NotContains(t, page.Text, "Site Nav")
	assert.NotContains(t, page.Text, "Copyright")
}

func TestFetchRejectsShortBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(200)
	require.NoError(t, err)
	f.http = server.Client()

	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
}

func TestFetchRejectsNonHTMLMIME(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 binary data"))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(5)
	require.NoError(t, err)
	f.http = server.Client()

	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
}

func TestFetchClassifiesServerErrorAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(5)
	require.NoError(t, err)
	f.http = server.Client()

	_, err = f.Fetch(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTransient))
}

func TestFetchCachesByURL(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>" + strings.Repeat("content ", 10) + "</body></html>"))
	}))
	defer server.Close()

	f, err := NewHTTPFetcher(5)
	require.NoError(t, err)
	f.http = server.Client()

	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
