package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

type Runner struct {
	decider Decider
	logger  *slog.Logger
}

func NewRunner(decider Decider, logger *slog.Logger) *Runner {
	return &Runner{decider: decider, logger: logger.With("component", "agent")}
}

// Run asks the decider for steps until it stops calling tools or the step
// budget is spent. Tool failures are returned to the decider as error results
// and never abort the run; a decider failure does. Writes already made by
// earlier tool calls are kept when the context is cancelled.
func (r *Runner) Run(ctx context.Context, task Task) (*Outcome, error) {
	if task.MaxSteps <= 0 {
		return nil, fmt.Errorf("step budget must be positive, got %d", task.MaxSteps)
	}
	if task.Executor == nil && len(task.Tools) > 0 {
		return nil, fmt.Errorf("tools given without an executor")
	}

	out := &Outcome{}
	for out.Steps < task.MaxSteps {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		step, err := r.decider.Next(ctx, Request{
			System:    task.System,
			Messages:  task.Messages,
			Tools:     task.Tools,
			Exchanges: out.Exchanges,
		})
		if err != nil {
			return out, fmt.Errorf("deciding step %d: %w", out.Steps+1, err)
		}
		out.Steps++
		if step.Text != "" {
			out.Text = step.Text
		}
		if len(step.Calls) == 0 {
			return out, nil
		}

		results := make([]ToolResult, 0, len(step.Calls))
		for _, call := range step.Calls {
			results = append(results, r.execute(ctx, task.Executor, call))
		}
		out.Exchanges = append(out.Exchanges, Exchange{Step: step, Results: results})
	}

	out.Exhausted = true
	r.logger.Debug("step budget exhausted", "steps", out.Steps)
	return out, nil
}

func (r *Runner) execute(ctx context.Context, exec Executor, call ToolCall) ToolResult {
	if exec == nil {
		return ToolResult{CallID: call.ID, Content: "no tools are available", IsError: true}
	}
	value, err := exec.Call(ctx, call.Name, call.Input)
	if err != nil {
		r.logger.Info("tool call failed", "tool", call.Name, "error", err)
		return ToolResult{CallID: call.ID, Content: err.Error(), IsError: true}
	}
	body, err := json.Marshal(value)
	if err != nil {
		return ToolResult{CallID: call.ID, Content: fmt.Sprintf("encoding result: %v", err), IsError: true}
	}
	return ToolResult{CallID: call.ID, Content: string(body)}
}
