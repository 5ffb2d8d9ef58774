package engine

import (
	"context"
	"time"

	"github.com/growforge/planmesh/browser"
	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/tool"
)

// validateTools probes the connected handle a bounded number of times before
// handing its tool bindings to the executor. Exhausting the probe budget
// means the remote instance is not usable; the step is not attempted and the
// caller surfaces TOOLS_UNAVAILABLE without retrying the whole step.
func (e *Engine) validateTools(ctx context.Context, handle browser.Handle) ([]tool.Tool, error) {
	var lastErr error
	for attempt := 1; attempt <= e.probeAttempts; attempt++ {
		if lastErr = handle.Probe(ctx); lastErr == nil {
			return handle.Tools(), nil
		}
		e.logger.Warn("engine.tools.probe_failed", "attempt", attempt, "error", lastErr)

		if attempt < e.probeAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.probeBackoff):
			}
		}
	}
	return nil, core.NewError(core.CodeToolsUnavailable, "tool bindings unavailable after %d probes: %v", e.probeAttempts, lastErr)
}
