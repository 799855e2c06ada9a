package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var queryFile string
	var outPath string

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Start a fresh research run",
		Long:  "run drives the Planner and Writer agents over a query end to end, writing a cited Markdown report into a new run directory.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := resolveQuery(args, queryFile)
			if err != nil {
				return err
			}

			orch, logger, err := buildOrchestrator(cmd)
			if err != nil {
				return err
			}

			fmt.Printf("%s researching: %s\n", cyan("▸"), query)
			start := time.Now()

			result, err := orch.Run(cmd.Context(), query)
			if err != nil {
				return err
			}

			printResult(result, time.Since(start), logger)

			if outPath != "" && result.ReportPath != "" {
				if err := copyReport(result.ReportPath, outPath); err != nil {
					return err
				}
			}

			return exitForStatus(result)
		},
	}

	cmd.Flags().StringVar(&queryFile, "query-file", "", "read the query from a file instead of arguments")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also copy the finished report to this path")

	return cmd
}

func resolveQuery(args []string, queryFile string) (string, error) {
	if queryFile != "" {
		body, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return strings.TrimSpace(string(body)), nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a query is required: pass it as an argument or with --query-file")
	}
	return strings.Join(args, " "), nil
}

func copyReport(reportPath, outPath string) error {
	body, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}
	if err := os.WriteFile(outPath, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
