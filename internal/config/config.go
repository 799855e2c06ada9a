// Package config loads the engine's immutable runtime configuration from
// environment variables, a narrowed form of the teacher's internal/config
// layering: there is no config file and no CLI flag override, and the
// numeric limits are fixed defaults rather than read from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Search providers supported out of the box (spec §6).
const (
	SearchProviderTavily     = "tavily"
	SearchProviderDuckDuckGo = "duckduckgo"
)

const (
	DefaultLLMModel          = "gpt-4o-mini"
	DefaultLLMBaseURL        = "https://api.openai.com/v1"
	DefaultSearchProvider    = SearchProviderDuckDuckGo
	DefaultArtifactsDir      = "./artifacts"
	DefaultFetchConcurrency  = 6
	DefaultMaxPlannerSteps   = 12
	DefaultMaxRetries        = 3
	DefaultStagnationLimit   = 3
	DefaultMinEvidence       = 5
	DefaultMaxURLsPerQuery   = 5
	DefaultMaxResultsPerQ    = 8
	DefaultWriteLevel        = 2 // H2
	DefaultMaxCharsPerSect   = 6000
	DefaultMaxStepsPerSect   = 6
	DefaultGlobalTimeout     = 30 * time.Minute
	DefaultMinFetchBodyChars = 200
)

// Config is the single immutable configuration struct the orchestrator
// builds once at run start and threads through every component (spec §9:
// "Configuration is a single immutable struct constructed at run start").
type Config struct {
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string

	SearchAPIKey   string
	SearchProvider string

	ArtifactsDir string

	FetchConcurrency int
	MaxPlannerSteps  int
	MaxRetries       int
	StagnationLimit  int
	MinEvidence      int
	MaxURLsPerQuery  int
	MaxResultsPerQ   int

	WriteLevel         int
	MaxCharsPerSection int
	MaxStepsPerSection int

	MinFetchBodyChars int
	GlobalTimeout      time.Duration

	// ReuseEvidence resolves the spec's open question: whether the Writer
	// may re-use an evidence ID already consumed by an earlier section.
	// Default false: once by default, reusable only on explicit request.
	ReuseEvidence bool
}

// Load builds a Config from the process environment via viper, applying
// defaults for anything unset. It never mutates global state beyond the
// returned value.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("llm_model", DefaultLLMModel)
	v.SetDefault("llm_base_url", DefaultLLMBaseURL)
	v.SetDefault("search_provider", DefaultSearchProvider)
	v.SetDefault("artifacts_dir", DefaultArtifactsDir)

	cfg := Config{
		LLMAPIKey:          v.GetString("llm_api_key"),
		LLMBaseURL:         v.GetString("llm_base_url"),
		LLMModel:           v.GetString("llm_model"),
		SearchAPIKey:       v.GetString("search_api_key"),
		SearchProvider:     strings.ToLower(v.GetString("search_provider")),
		ArtifactsDir:       v.GetString("artifacts_dir"),
		FetchConcurrency:   DefaultFetchConcurrency,
		MaxPlannerSteps:    DefaultMaxPlannerSteps,
		MaxRetries:         DefaultMaxRetries,
		StagnationLimit:    DefaultStagnationLimit,
		MinEvidence:        DefaultMinEvidence,
		MaxURLsPerQuery:    DefaultMaxURLsPerQuery,
		MaxResultsPerQ:     DefaultMaxResultsPerQ,
		WriteLevel:         DefaultWriteLevel,
		MaxCharsPerSection: DefaultMaxCharsPerSect,
		MaxStepsPerSection: DefaultMaxStepsPerSect,
		MinFetchBodyChars:  DefaultMinFetchBodyChars,
		GlobalTimeout:      DefaultGlobalTimeout,
		ReuseEvidence:      false,
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.SearchProvider {
	case SearchProviderTavily, SearchProviderDuckDuckGo:
	default:
		return fmt.Errorf("config: unsupported SEARCH_PROVIDER %q", c.SearchProvider)
	}
	if c.SearchProvider == SearchProviderTavily && c.SearchAPIKey == "" {
		return fmt.Errorf("config: SEARCH_API_KEY required for tavily provider")
	}
	if c.ArtifactsDir == "" {
		return fmt.Errorf("config: ARTIFACTS_DIR must not be empty")
	}
	return nil
}
