// Package agent implements the core analysis loop: call the model, execute
// the tools it requests, feed results back, and stop on a terminal emission
// or when the step budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rulehound/rulehound/internal/providers"
	"github.com/rulehound/rulehound/internal/rules"
	"github.com/rulehound/rulehound/internal/tools"
)

// State is the loop's lifecycle position.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
	StateBudgetExhausted State = "budget_exhausted"
)

// TerminationReason records why a run stopped.
type TerminationReason string

const (
	ReasonNone            TerminationReason = "none"
	ReasonExplicitStop    TerminationReason = "explicit_stop"
	ReasonBudgetExhausted TerminationReason = "budget_exhausted"
	ReasonFatalError      TerminationReason = "fatal_error"
)

const (
	// DefaultMaxSteps bounds the loop when no budget is configured.
	DefaultMaxSteps = 50
	minSteps        = 10
	maxSteps        = 500
)

// responseKind is the explicit discriminator over what a model response
// means to the loop. Exactly one kind applies per response.
type responseKind int

const (
	responseText     responseKind = iota // plain text, no tool calls, no emission
	responseTools                        // one or more tool call requests
	responseEmission                     // terminal structured emission
)

// nudgePrompt is appended when the model stops calling tools without
// producing the structured emission, so the next round-trip can finish the
// run properly instead of stalling.
const nudgePrompt = `You stopped without emitting your findings. Reply now with only the final JSON object containing the "businessRules" array. Do not call any more tools.`

// LoopConfig holds dependencies and limits for a Loop.
type LoopConfig struct {
	Provider  providers.Provider
	Registry  *tools.Registry
	MaxSteps  int // one step = one model round-trip; clamped to [10, 500]
	MaxTokens int // forwarded to the provider per request
}

// Loop drives the step-by-step analysis cycle and owns the termination
// policy. A Loop handles one run at a time; concurrent runs need separate
// Loop instances.
type Loop struct {
	provider  providers.Provider
	registry  *tools.Registry
	maxSteps  int
	maxTokens int

	state  State
	reason TerminationReason
	steps  int
}

// NewLoop creates a loop. Provider and Registry are required.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: Provider is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent: Registry is required")
	}

	budget := cfg.MaxSteps
	if budget == 0 {
		budget = DefaultMaxSteps
	}
	if budget < minSteps {
		budget = minSteps
	}
	if budget > maxSteps {
		budget = maxSteps
	}

	return &Loop{
		provider:  cfg.Provider,
		registry:  cfg.Registry,
		maxSteps:  budget,
		maxTokens: cfg.MaxTokens,
		state:     StateIdle,
		reason:    ReasonNone,
	}, nil
}

// State returns the loop's current lifecycle state.
func (l *Loop) State() State { return l.state }

// Reason returns why the last run terminated.
func (l *Loop) Reason() TerminationReason { return l.reason }

// Steps returns how many model round-trips the last run used.
func (l *Loop) Steps() int { return l.steps }

// RunResult is the outcome of one completed (or exhausted) run.
type RunResult struct {
	Rules []rules.BusinessRule
	Steps int
	State State
}

// Run executes the analysis until the model emits its terminal structured
// findings, the step budget is exhausted, the context is cancelled, or a
// fatal model-call error occurs.
//
// Budget semantics: one step is one full model round-trip regardless of how
// many tool calls it contains; a run never makes more than MaxSteps
// round-trips. On exhaustion whatever partial structured content exists is
// aggregated; none at all yields an empty rule set, not an error.
func (l *Loop) Run(ctx context.Context, systemPrompt, userPrompt string) (*RunResult, error) {
	conv := NewConversation(systemPrompt, userPrompt)
	toolDefs := l.registry.Definitions()
	aggregator := rules.Aggregator{}

	l.state = StateRunning
	l.reason = ReasonNone
	l.steps = 0

	for l.steps < l.maxSteps {
		// Cancellation is observed between steps; an in-flight network call
		// is abandoned rather than forcibly interrupted.
		if err := ctx.Err(); err != nil {
			l.state = StateFailed
			l.reason = ReasonFatalError
			return nil, err
		}

		start := time.Now()
		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Messages:  conv.Messages(),
			Tools:     toolDefs,
			MaxTokens: l.maxTokens,
		})
		l.steps++
		if err != nil {
			l.state = StateFailed
			l.reason = ReasonFatalError
			return nil, fmt.Errorf("step %d: %w", l.steps, err)
		}

		slog.Debug("model round-trip",
			"step", l.steps,
			"budget", l.maxSteps,
			"tool_calls", len(resp.ToolCalls),
			"tokens", resp.Usage.TotalTokens,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		conv.AppendAssistant(resp.Content, resp.ToolCalls)

		switch classify(resp) {
		case responseEmission:
			raw, _ := rules.ExtractEmission(resp.Content)
			found, err := aggregator.Aggregate(raw)
			if err != nil {
				// The run itself completed; aggregation failed. The caller
				// decides whether to treat this as fatal or re-prompt.
				l.state = StateCompleted
				l.reason = ReasonExplicitStop
				return nil, err
			}
			l.state = StateCompleted
			l.reason = ReasonExplicitStop
			slog.Info("analysis complete", "steps", l.steps, "rules", len(found))
			return &RunResult{Rules: found, Steps: l.steps, State: l.state}, nil

		case responseTools:
			if err := l.executeToolCalls(ctx, conv, resp.ToolCalls); err != nil {
				l.state = StateFailed
				l.reason = ReasonFatalError
				return nil, err
			}

		case responseText:
			// Plain text without findings: nudge and spend another step.
			slog.Debug("assistant stopped without emission, nudging", "step", l.steps)
			conv.AppendUser(nudgePrompt)
		}
	}

	l.state = StateBudgetExhausted
	l.reason = ReasonBudgetExhausted
	salvaged := l.salvage(aggregator, conv)
	slog.Warn("step budget exhausted", "steps", l.steps, "salvaged_rules", len(salvaged))
	return &RunResult{Rules: salvaged, Steps: l.steps, State: l.state}, nil
}

// classify maps a model response onto the explicit dispatch discriminator.
func classify(resp *providers.ChatResponse) responseKind {
	if len(resp.ToolCalls) > 0 {
		return responseTools
	}
	if _, ok := rules.ExtractEmission(resp.Content); ok {
		return responseEmission
	}
	return responseText
}

// executeToolCalls runs every requested call strictly sequentially, in the
// order the model asked for them, appending each result before the next call
// starts. Parallelizing would reorder conversation content relative to the
// request order and is deliberately avoided. The only error returned is
// cancellation; tool failures become conversation content.
func (l *Loop) executeToolCalls(ctx context.Context, conv *Conversation, calls []providers.ToolCall) error {
	for _, tc := range calls {
		// No partial tool result is appended once cancellation is observed.
		if err := ctx.Err(); err != nil {
			return err
		}

		args, err := parseArgs(tc.Arguments)
		if err != nil {
			res := tools.ErrorResult(fmt.Sprintf("malformed arguments for %q: %v", tc.Name, err))
			conv.AppendToolResult(tc.ID, formatResult(res))
			continue
		}

		res := l.registry.Execute(ctx, tc.Name, args)
		conv.AppendToolResult(tc.ID, formatResult(res))
	}
	return nil
}

// salvage recovers partial structured content from the last assistant turn
// after budget exhaustion. Anything unparseable yields an empty set.
func (l *Loop) salvage(agg rules.Aggregator, conv *Conversation) []rules.BusinessRule {
	raw, ok := rules.ExtractEmission(conv.LastAssistantText())
	if !ok {
		return nil
	}
	found, err := agg.Aggregate(raw)
	if err != nil {
		slog.Debug("partial emission did not validate", "error", err)
		return nil
	}
	return found
}

func parseArgs(raw string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// formatResult renders a tool envelope as conversation content. Error kind
// is surfaced so the model can distinguish a timeout from a rejection.
func formatResult(res *tools.Result) string {
	if res.IsError {
		return fmt.Sprintf("error (%s): %s", res.Kind, res.Content)
	}
	return res.Content
}
