// Package reactloop factors out the think -> act -> observe state machine
// shared by the Planner and Writer agents (spec.md §4.3/§4.4, §9: "the
// agent loop is a plain state machine — prompt, response, parsed action,
// effect, next prompt — with no hidden state").
//
// Grounded on the teacher's three-way split of its ReAct engine
// (internal/agent/domain/react/engine.go holds config and dependencies,
// runtime.go holds one execution's mutable state, solve.go is the
// entrypoint that wires them together), narrowed to the single
// iteration/termination/protocol-retry bookkeeping both OEDR agents need.
// Neither Planner nor Writer does native tool-call batching, attachment
// migration, or TUI event streaming, so those concerns of the teacher's
// engine have no counterpart here.
package reactloop

import (
	"context"
	"fmt"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/antigravity-dev/oedr/internal/logging"
)

// Outcome reports whether a Step concluded the loop.
type Outcome int

const (
	Continue Outcome = iota
	Terminated
)

// StepFunc executes one turn: think (call the LLM), act (parse and dispatch
// the action), observe (append the result to history). It returns the
// updated transcript and whether the loop should keep going.
type StepFunc func(ctx context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error)

// Config bounds one loop run (spec §4.3/§4.4 termination policies).
type Config struct {
	MaxIterations      int
	MaxProtocolRetries int
	Logger             logging.Logger
}

// Run drives step until it reports Terminated, a non-protocol error occurs,
// the iteration ceiling is reached, or the protocol-error retry budget is
// exhausted. A protocol error does not abort the loop: it is folded back
// into history by step (as the agent's next-turn observation) and the loop
// continues, up to MaxProtocolRetries total protocol errors across the
// whole run (spec §7, §4.3 "ProtocolExhausted after max_retries").
func Run(ctx context.Context, cfg Config, history []llm.Message, step StepFunc) ([]llm.Message, error) {
	logger := logging.OrNop(cfg.Logger)
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 1
	}

	protocolRetries := 0
	for iteration := 1; iteration <= maxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return history, ctx.Err()
		default:
		}

		next, outcome, err := step(ctx, history, iteration)
		if err != nil {
			if errs.IsProtocolError(err) {
				protocolRetries++
				logger.Warn("protocol error on iteration %d (retry %d/%d): %v", iteration, protocolRetries, cfg.MaxProtocolRetries, err)
				if protocolRetries > cfg.MaxProtocolRetries {
					return history, fmt.Errorf("%w: protocol retry budget exhausted after %d attempts", errs.ErrProtocol, protocolRetries)
				}
				history = next
				continue
			}
			return history, err
		}

		history = next
		if outcome == Terminated {
			return history, nil
		}
	}

	return history, fmt.Errorf("%w: reached iteration ceiling (%d) without terminating", errs.ErrBudgetExceeded, maxIterations)
}
