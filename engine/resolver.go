package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growforge/planmesh/core"
)

// resolution is the resolver's outcome: either a plan with its current step,
// or a settled payload that short-circuits the rest of the pipeline.
type resolution struct {
	plan    *core.Plan
	step    *core.Step
	settled *Response
}

// resolve selects the plan and step this invocation will execute. An explicit
// plan id wins when supplied; otherwise the most recent non-terminal plan of
// the instance is chosen. Plans without steps get exactly one synthetic step
// built from the plan's own title and description. When every step is already
// terminal the plan is marked completed here and the pipeline short-circuits.
func (e *Engine) resolve(ctx context.Context, inst *core.Instance, explicitID string) (*resolution, error) {
	plan, err := e.selectPlan(ctx, inst, explicitID)
	if err != nil {
		return nil, err
	}

	if plan.Status == core.PlanPaused {
		return &resolution{settled: planPausedResponse(plan)}, nil
	}
	if plan.Status.IsTerminal() {
		return &resolution{settled: planSettledResponse(plan)}, nil
	}

	plan.SortSteps()

	if len(plan.Steps) == 0 {
		if err := e.synthesizeStep(ctx, plan); err != nil {
			return nil, err
		}
	}

	step := plan.CurrentStep()
	if step == nil {
		return e.settleCompleted(ctx, plan)
	}

	return &resolution{plan: plan, step: step}, nil
}

// selectPlan loads the explicit plan or falls back to the latest active one.
func (e *Engine) selectPlan(ctx context.Context, inst *core.Instance, explicitID string) (*core.Plan, error) {
	if explicitID != "" {
		plan, err := e.store.GetPlan(ctx, explicitID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.NewError(core.CodePlanNotFound, "plan %s not found", explicitID)
			}
			return nil, fmt.Errorf("read plan %s: %w", explicitID, err)
		}
		if plan.InstanceID != inst.ID {
			return nil, core.NewError(core.CodePlanNotFound, "plan %s does not belong to instance %s", explicitID, inst.ID)
		}
		return plan, nil
	}

	plan, err := e.store.LatestActivePlan(ctx, inst.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewError(core.CodePlanNotFound, "no active plan for instance %s", inst.ID)
		}
		return nil, fmt.Errorf("resolve active plan for instance %s: %w", inst.ID, err)
	}
	return plan, nil
}

// synthesizeStep persists a single step derived from the plan itself, so
// legacy plans without granular steps still carry one unit of work.
func (e *Engine) synthesizeStep(ctx context.Context, plan *core.Plan) error {
	step := core.Step{
		ID:          core.NewID(),
		PlanID:      plan.ID,
		Order:       1,
		Title:       plan.Title,
		Description: plan.Description,
		Status:      core.StepPending,
	}
	if err := e.store.InsertStep(ctx, &step); err != nil {
		return fmt.Errorf("synthesize step for plan %s: %w", plan.ID, err)
	}

	plan.Steps = append(plan.Steps, step)
	plan.RecomputeProgress()
	if err := e.store.UpdatePlan(ctx, plan); err != nil {
		return fmt.Errorf("persist synthesized step counters for plan %s: %w", plan.ID, err)
	}

	e.logger.Info("engine.resolver.synthesized_step", "plan_id", plan.ID, "step_id", step.ID)
	return nil
}

// settleCompleted finalizes a plan whose steps are all terminal. The
// completion trigger fires here because this is the transition into the
// completed state.
func (e *Engine) settleCompleted(ctx context.Context, plan *core.Plan) (*resolution, error) {
	now := time.Now().UTC()
	plan.Status = core.PlanCompleted
	plan.CompletedAt = &now
	plan.UpdatedAt = now
	plan.RecomputeProgress()
	plan.ProgressPercentage = 100

	if err := e.store.UpdatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("finalize plan %s: %w", plan.ID, err)
	}
	e.fireCompletion(ctx, plan)

	return &resolution{settled: &Response{
		WaitingForInstructions: true,
		PlanCompleted:          true,
		CurrentStatus:          string(core.PlanCompleted),
		Message:                "All steps are already terminal. Plan marked as completed.",
		PlanID:                 plan.ID,
		PlanProgress:           progressOf(plan),
	}}, nil
}
