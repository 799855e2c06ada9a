package search

import (
	"fmt"

	"github.com/antigravity-dev/oedr/internal/config"
)

// New selects the concrete Provider named by cfg.SearchProvider and returns
// an error for any other name. A Config built by config.Load has already
// had unknown providers and a tavily selection without an API key rejected.
func New(cfg config.Config) (Provider, error) {
	switch cfg.SearchProvider {
	case config.SearchProviderTavily:
		return NewTavilyProvider(cfg.SearchAPIKey), nil
	case config.SearchProviderDuckDuckGo:
		return NewDuckDuckGoProvider(), nil
	default:
		return nil, fmt.Errorf("search: unknown provider %q", cfg.SearchProvider)
	}
}
