package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/growforge/planmesh/core"
)

// checkpoint re-reads the instance and plan rows and reports whether it is
// still safe to continue. A non-nil Response means the invocation must end
// now with that informational payload; pause and stop are expected states,
// not failures. The engine calls this between every phase so a pause/stop
// written out-of-band is discovered within one phase at most.
func (e *Engine) checkpoint(ctx context.Context, instanceID, planID string) (*Response, error) {
	inst, err := e.store.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewError(core.CodeInstanceNotFound, "instance %s not found", instanceID)
		}
		return nil, fmt.Errorf("read instance %s: %w", instanceID, err)
	}
	if !inst.IsRunning() {
		return instanceHaltedResponse(inst), nil
	}

	plan, err := e.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewError(core.CodePlanNotFound, "plan %s not found", planID)
		}
		return nil, fmt.Errorf("read plan %s: %w", planID, err)
	}
	switch {
	case plan.Status == core.PlanPaused:
		return planPausedResponse(plan), nil
	case plan.Status.IsTerminal():
		return planSettledResponse(plan), nil
	}

	return nil, nil
}
