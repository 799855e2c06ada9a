// Package planner implements the Planner Agent (spec.md C7): a ReAct loop
// that issues Search actions to grow the Evidence Bank and eventually
// emits WriteOutline to hand a structured outline to the Writer.
//
// Grounded on the teacher's SolveTask/think/runtime split
// (internal/agent/domain/react/solve.go), driven through
// internal/reactloop's shared iteration/termination shape, and on
// hyperifyio-goresearch's App.Run query -> search -> aggregate pipeline
// (other_examples, reference-only) for how one search round fans out
// across multiple URLs.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/evidence"
	"github.com/antigravity-dev/oedr/internal/fetch"
	"github.com/antigravity-dev/oedr/internal/journal"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/logging"
	"github.com/antigravity-dev/oedr/internal/outline"
	"github.com/antigravity-dev/oedr/internal/protocol"
	"github.com/antigravity-dev/oedr/internal/reactloop"
	"github.com/antigravity-dev/oedr/internal/search"
)

// Config bounds and tunes one Planner run (spec §4.3).
type Config struct {
	MaxSteps           int
	MaxRetries         int
	StagnationLimit    int
	MinEvidence        int
	MaxURLsPerQuery    int
	MaxResultsPerQuery int
	FetchConcurrency   int
	Logger             logging.Logger
}

// Planner drives the Search/WriteOutline/Terminate loop for one run.
type Planner struct {
	cfg     Config
	llm     llm.Client
	search  search.Provider
	fetcher fetch.Fetcher
	bank    *evidence.Bank
	journal *journal.Journal
}

func New(cfg Config, llmClient llm.Client, searchProvider search.Provider, fetcher fetch.Fetcher, bank *evidence.Bank, j *journal.Journal) *Planner {
	return &Planner{cfg: cfg, llm: llmClient, search: searchProvider, fetcher: fetcher, bank: bank, journal: j}
}

func (p *Planner) logger() logging.Logger {
	return logging.OrNop(p.cfg.Logger)
}

// Result is what a Planner run produced.
type Result struct {
	Outline    *outline.Node
	Terminated bool
	Reason     string
}

// searchArgs is the JSON payload of a Search tool_call. Queries issues web
// searches and returns snippet results as the next observation (stage 1 of
// the spec's two-stage URL filter: the model reviews snippets and chooses
// which URLs are worth fetching). URLs fetches and extracts specific pages
// into the Evidence Bank (stage 2: the fetcher itself rejects pages that
// fail MIME/length checks, spec §4.3).
type searchArgs struct {
	Queries []string `json:"queries,omitempty"`
	URLs    []string `json:"urls,omitempty"`
}

type runState struct {
	query             string
	result            Result
	consecutiveNoGain int
	lastEvidenceCount int
}

// outlineUpdatedPayload is the journal payload for KindOutlineUpdated. It
// carries the rendered Markdown, not just a section count, so the
// orchestrator's resume protocol can reconstruct the committed outline from
// events.jsonl alone (spec §8 "replaying events.jsonl reconstructs a Bank
// and outline byte-identical to the original").
type outlineUpdatedPayload struct {
	Sections int    `json:"sections"`
	Markdown string `json:"markdown"`
}

// Run drives the Planner loop to completion: either the model emits
// WriteOutline (validated against the Bank and structural invariants) or
// Terminate, or a termination policy (step ceiling, stagnation) forces a
// stop. No cap on cumulative fetch count or evidence count is applied.
func (p *Planner) Run(ctx context.Context, query string) (Result, error) {
	state := &runState{query: query}
	history := []llm.Message{
		{Role: "system", Content: systemPrompt(p.cfg)},
		{Role: "user", Content: query},
	}

	loopCfg := reactloop.Config{
		MaxIterations:      p.cfg.MaxSteps,
		MaxProtocolRetries: p.cfg.MaxRetries,
		Logger:             p.cfg.Logger,
	}
	_, err := reactloop.Run(ctx, loopCfg, history, p.step(state))
	if err == nil || state.result.Outline != nil || state.result.Terminated {
		return state.result, nil
	}

	// Budget exhaustion forces a clean termination rather than a run
	// failure (spec §7: "Budget exceeded -> force Terminate, not failure").
	// A spent protocol-retry budget is a genuine Planner failure that the
	// orchestrator's partial-report fallback must handle.
	if errors.Is(err, errs.ErrBudgetExceeded) {
		state.result.Terminated = true
		state.result.Reason = "step ceiling reached"
		if p.journal != nil {
			_, _ = p.journal.Append(journal.KindPlannerTerminated, map[string]string{"reason": state.result.Reason})
		}
		return state.result, nil
	}
	return state.result, err
}

func (p *Planner) step(state *runState) reactloop.StepFunc {
	return func(ctx context.Context, history []llm.Message, iteration int) ([]llm.Message, reactloop.Outcome, error) {
		if p.journal != nil {
			_, _ = p.journal.Append(journal.KindPlannerStep, map[string]int{"iteration": iteration})
		}

		resp, err := p.llm.Complete(ctx, llm.Request{Messages: history, Temperature: 0.2})
		if err != nil {
			return history, reactloop.Continue, err
		}
		history = append(history, llm.Message{Role: "assistant", Content: resp.Content})

		action, perr := protocol.Parse(resp.Content)
		if perr != nil {
			history = append(history, observation(perr.Error()))
			return history, reactloop.Continue, perr
		}

		switch action.Kind {
		case protocol.KindToolCall:
			return p.dispatchToolCall(ctx, history, action, state)

		case protocol.KindWriteOutline:
			return p.dispatchWriteOutline(history, action, state)

		case protocol.KindTerminate:
			state.result.Terminated = true
			state.result.Reason = action.Reason
			if p.journal != nil {
				_, _ = p.journal.Append(journal.KindPlannerTerminated, map[string]string{"reason": action.Reason})
			}
			return history, reactloop.Terminated, nil

		default:
			perr := errs.NewProtocolError("UnsupportedAction", fmt.Sprintf("planner cannot handle action kind %q", action.Kind))
			history = append(history, observation(perr.Error()))
			return history, reactloop.Continue, perr
		}
	}
}

func (p *Planner) dispatchToolCall(ctx context.Context, history []llm.Message, action protocol.Action, state *runState) ([]llm.Message, reactloop.Outcome, error) {
	if action.ToolName != "search" {
		perr := errs.NewProtocolError("UnknownTool", fmt.Sprintf("unknown tool %q", action.ToolName))
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}

	var args searchArgs
	if err := json.Unmarshal(action.ToolArgs, &args); err != nil {
		perr := errs.NewProtocolError("MalformedSearchArgs", err.Error())
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}

	obs := p.runSearch(ctx, state.query, args)
	history = append(history, observation(obs))

	if len(args.URLs) > 0 {
		current := p.bank.Stats().Count
		if current <= state.lastEvidenceCount {
			state.consecutiveNoGain++
		} else {
			state.consecutiveNoGain = 0
		}
		state.lastEvidenceCount = current
		if state.consecutiveNoGain >= p.cfg.StagnationLimit {
			state.result.Terminated = true
			state.result.Reason = "stagnation: no new evidence across consecutive fetch rounds"
			if p.journal != nil {
				_, _ = p.journal.Append(journal.KindPlannerTerminated, map[string]string{"reason": state.result.Reason})
			}
			return history, reactloop.Terminated, nil
		}
	}

	if p.bank.Stats().Count >= p.cfg.MinEvidence {
		history = append(history, observation(readinessNudge(p.bank.Stats().Count, p.cfg.MinEvidence)))
	}
	return history, reactloop.Continue, nil
}

func (p *Planner) dispatchWriteOutline(history []llm.Message, action protocol.Action, state *runState) ([]llm.Message, reactloop.Outcome, error) {
	tree, err := outline.Parse(action.Markdown)
	if err != nil {
		perr := errs.NewProtocolError("MalformedOutline", err.Error())
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}
	if err := outline.Validate(tree); err != nil {
		perr := errs.NewProtocolError("InvalidOutlineStructure", err.Error())
		history = append(history, observation(perr.Error()))
		return history, reactloop.Continue, perr
	}
	if err := outline.ValidateCitations(tree, p.bank); err != nil {
		history = append(history, observation(err.Error()))
		return history, reactloop.Continue, err
	}

	state.result.Outline = tree
	if p.journal != nil {
		_, _ = p.journal.Append(journal.KindOutlineUpdated, outlineUpdatedPayload{
			Sections: len(outline.Leaves(tree)),
			Markdown: outline.Render(tree),
		})
	}
	return history, reactloop.Terminated, nil
}

func observation(text string) llm.Message {
	return llm.Message{Role: "user", Content: "<observation>" + text + "</observation>"}
}

func readinessNudge(count, min int) string {
	return fmt.Sprintf("You have gathered %d evidence records (minimum %d). Consider emitting <write_outline> soon if coverage feels sufficient; this is guidance, not a forced termination.", count, min)
}
