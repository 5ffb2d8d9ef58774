package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/growforge/planmesh/core"
)

// applyOutcome persists the classified step result and recomputes the plan's
// aggregate counters. It reports whether the plan transitioned into the
// completed state during this call, so the completion trigger fires exactly
// once.
//
// Policy: a failed step leaves the plan in_progress so the next invocation
// can retry it; the plan only fails once every step is terminal and at least
// one failed. needs_human pauses the plan until a user intervenes.
func (e *Engine) applyOutcome(ctx context.Context, plan *core.Plan, step *core.Step, outcome Outcome, result string) (bool, error) {
	now := time.Now().UTC()

	step.Result = result
	switch outcome {
	case OutcomeCompleted:
		step.Status = core.StepCompleted
		step.CompletedAt = &now
	case OutcomeFailed:
		step.Status = core.StepFailed
		step.CompletedAt = &now
	default:
		step.Status = core.StepInProgress
	}
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return false, fmt.Errorf("persist step %s: %w", step.ID, err)
	}

	for i := range plan.Steps {
		if plan.Steps[i].ID == step.ID {
			plan.Steps[i] = *step
			break
		}
	}
	plan.RecomputeProgress()

	nowCompleted := false
	switch {
	case plan.CurrentStep() == nil && plan.AllStepsSucceeded():
		plan.Status = core.PlanCompleted
		plan.CompletedAt = &now
		nowCompleted = true
	case plan.CurrentStep() == nil:
		plan.Status = core.PlanFailed
	case outcome == OutcomeNeedsHuman:
		plan.Status = core.PlanPaused
	default:
		plan.Status = core.PlanInProgress
	}
	plan.UpdatedAt = now

	if err := e.store.UpdatePlan(ctx, plan); err != nil {
		return false, fmt.Errorf("persist plan %s: %w", plan.ID, err)
	}

	e.logger.Info("engine.progress.updated",
		"plan_id", plan.ID,
		"step_id", step.ID,
		"outcome", string(outcome),
		"progress", plan.ProgressPercentage,
	)
	return nowCompleted, nil
}

// fireCompletion notifies the downstream workflow service that the plan
// finished. Failures are logged and recorded in the audit trail; the already
// persisted completion is never rolled back.
func (e *Engine) fireCompletion(ctx context.Context, plan *core.Plan) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.NotifyPlanCompleted(ctx, plan.SiteID, plan.InstanceID, plan.ID); err != nil {
		e.logger.Error("engine.completion.notify_failed", "plan_id", plan.ID, "error", err)
		entry := core.NewLogEntry(plan.InstanceID, core.LogError, "completion notification failed: "+err.Error())
		if logErr := e.store.AppendLog(ctx, entry); logErr != nil {
			e.logger.Warn("engine.completion.log_failed", "plan_id", plan.ID, "error", logErr)
		}
		return
	}
	e.logger.Info("engine.completion.notified", "plan_id", plan.ID, "site_id", plan.SiteID)
}
