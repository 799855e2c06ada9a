package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "")
	t.Setenv("SEARCH_API_KEY", "")
	t.Setenv("ARTIFACTS_DIR", "")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchProvider, cfg.SearchProvider)
	assert.Equal(t, DefaultArtifactsDir, cfg.ArtifactsDir)
	assert.Equal(t, DefaultLLMModel, cfg.LLMModel)
	assert.False(t, cfg.ReuseEvidence)
}

func TestLoadRejectsTavilyWithoutKey(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "tavily")
	t.Setenv("SEARCH_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SEARCH_API_KEY")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "bing")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestLoadAcceptsTavilyWithKey(t *testing.T) {
	t.Setenv("SEARCH_PROVIDER", "tavily")
	t.Setenv("SEARCH_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tavily", cfg.SearchProvider)
}
