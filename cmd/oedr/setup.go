package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/oedr/internal/config"
	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/fetch"
	"github.com/antigravity-dev/oedr/internal/judge"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/logging"
	"github.com/antigravity-dev/oedr/internal/orchestrator"
	"github.com/antigravity-dev/oedr/internal/search"
)

// buildOrchestrator loads Config from the environment and wires every
// external collaborator the orchestrator needs, the way the teacher's
// cli.initialize wires a config manager and agent before any command runs.
func buildOrchestrator(cmd *cobra.Command) (*orchestrator.Orchestrator, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	logger := logging.New(logging.Config{Level: level, Format: format})

	searchProvider, err := search.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("selecting search provider: %w", err)
	}

	fetcher, err := fetch.NewHTTPFetcher(cfg.MinFetchBodyChars)
	if err != nil {
		return nil, nil, fmt.Errorf("building fetcher: %w", err)
	}

	if cfg.LLMAPIKey == "" {
		return nil, nil, fmt.Errorf("LLM_API_KEY is required")
	}
	llmClient := llm.WithRetry(
		llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel),
		errs.DefaultRetryConfig(cfg.MaxRetries),
		logger.With("llm"),
	)

	var outlineJudge judge.Judge = judge.NewLLMJudge(llmClient)

	orch := orchestrator.New(cfg, llmClient, searchProvider, fetcher, outlineJudge, logger)
	return orch, logger, nil
}

// statusExitCode maps a run's terminal Status to the process exit code
// spec §6 requires: 0 completed, 2 partial, 1 fatal.
func statusExitCode(status orchestrator.Status) int {
	switch status {
	case orchestrator.StatusCompleted:
		return 0
	case orchestrator.StatusPartial:
		return 2
	default:
		return 1
	}
}
