package executor

import (
	"context"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/tool"
)

// SubStep records one atomic sub-action the executor took while working on a
// step: a single tool invocation with its arguments, result and token cost.
type SubStep struct {
	Tool      string          `json:"tool"`
	Arguments string          `json:"arguments"`
	Result    string          `json:"result"`
	Usage     core.TokenUsage `json:"usage"`
}

// StepReport is the structured outcome the model can emit through the
// report_step_status tool. When present it takes precedence over free-text
// heuristics during classification.
type StepReport struct {
	Status string `json:"status" description:"One of: completed, failed, in_progress, needs_human"`
	Reason string `json:"reason,omitempty" description:"Short explanation of the outcome"`
}

// Result is the ephemeral return value of one execution. It is consumed once
// per invocation to update the plan/step and to build log entries; it is
// never persisted as its own entity.
type Result struct {
	Text     string
	Report   *StepReport
	Usage    core.TokenUsage
	SubSteps []SubStep
}

// Request describes one step execution handed to the executor.
type Request struct {
	// System is the system-level instruction block (identity, safety rules,
	// historical context, session context).
	System string

	// Prompt is the user-level instruction: what to do right now.
	Prompt string

	// Tools are the validated tool bindings available for this step.
	Tools []tool.Tool

	// OnStep is invoked once per atomic sub-action, after the tool call
	// completed. Returning an error aborts the loop immediately and the
	// error is propagated unchanged; this is the cancellation side-channel
	// for in-flight steps.
	OnStep func(SubStep) error

	// MaxIterations bounds the reasoning loop. Zero means the default.
	MaxIterations int
}

// Executor runs exactly one step worth of work and returns its result.
// Implementations must return the partial Result alongside the error when
// OnStep aborts the loop, so already-taken sub-actions stay observable.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}
