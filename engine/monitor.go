package engine

import (
	"context"
	"fmt"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/executor"
)

// stepMonitor returns the executor callback invoked once per atomic
// sub-action. It persists the tool_call audit entry, then re-reads instance
// and plan status so a pause/stop written while a step is in flight aborts
// the loop at the next sub-action boundary. This is the only interruption
// point inside a running step; the coarse checkpoints only run between
// phases.
func (e *Engine) stepMonitor(ctx context.Context, instanceID, planID string) func(executor.SubStep) error {
	return func(sub executor.SubStep) error {
		entry := core.NewToolCallEntry(instanceID, sub.Tool, sub.Arguments, sub.Result, sub.Usage)
		if err := e.store.AppendLog(ctx, entry); err != nil {
			e.logger.Warn("engine.monitor.log_failed", "instance_id", instanceID, "error", err)
		}

		inst, err := e.store.GetInstance(ctx, instanceID)
		if err != nil {
			return fmt.Errorf("re-read instance %s: %w", instanceID, err)
		}
		if !inst.IsRunning() {
			return core.ErrInstanceStopped
		}

		plan, err := e.store.GetPlan(ctx, planID)
		if err != nil {
			return fmt.Errorf("re-read plan %s: %w", planID, err)
		}
		if plan.Status == core.PlanPaused || plan.Status.IsTerminal() {
			return core.ErrPlanPaused
		}

		return nil
	}
}
