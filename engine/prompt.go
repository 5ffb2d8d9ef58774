package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/growforge/planmesh/core"
)

const systemPreamble = `You are an automation agent operating a real web browser on behalf of a user.
You advance exactly one step of a multi-step plan per invocation.

Rules:
- Work only on the current step. Do not start later steps.
- Use the provided browser tools for every page interaction.
- Never enter credentials unless explicitly instructed; if a login wall or
  captcha blocks you, report status needs_human instead of guessing.
- When the fate of the step is clear, call report_step_status with the
  outcome. If more invocations are needed, report in_progress.`

// buildPrompts assembles the system instruction block and the user prompt for
// one step execution. A supplied user instruction is persisted onto the plan
// description first so it keeps steering subsequent invocations.
func (e *Engine) buildPrompts(ctx context.Context, inst *core.Instance, plan *core.Plan, step *core.Step, sc *sessionContext, userInstruction string) (system, prompt string, err error) {
	if userInstruction != "" {
		plan.Description = strings.TrimSpace(plan.Description + "\n\nAdditional instruction from the user: " + userInstruction)
		plan.UpdatedAt = time.Now().UTC()
		if err := e.store.UpdatePlan(ctx, plan); err != nil {
			return "", "", fmt.Errorf("persist user instruction on plan %s: %w", plan.ID, err)
		}
		entry := core.NewLogEntry(inst.ID, core.LogUserAction, userInstruction)
		if err := e.store.AppendLog(ctx, entry); err != nil {
			e.logger.Warn("engine.prompt.log_failed", "instance_id", inst.ID, "error", err)
		}
	}

	history, err := e.store.RecentActions(ctx, inst.ID, e.historyLimit)
	if err != nil {
		return "", "", fmt.Errorf("load recent actions for instance %s: %w", inst.ID, err)
	}

	var sys strings.Builder
	sys.WriteString(systemPreamble)
	sys.WriteString("\n\nAuthentication context: ")
	sys.WriteString(sc.summary())
	if len(history) > 0 {
		sys.WriteString("\n\nRecent history on this instance:")
		for _, h := range history {
			fmt.Fprintf(&sys, "\n- [%s] %s", h.Kind, h.Content)
		}
	}

	var usr strings.Builder
	fmt.Fprintf(&usr, "Plan: %s\n", plan.Title)
	if plan.Description != "" {
		fmt.Fprintf(&usr, "%s\n", plan.Description)
	}
	usr.WriteString("\nSteps:\n")
	for _, s := range plan.Steps {
		marker := " "
		if s.ID == step.ID {
			marker = ">"
		}
		fmt.Fprintf(&usr, "%s %d. [%s] %s\n", marker, s.Order, s.Status, s.Title)
	}
	fmt.Fprintf(&usr, "\nExecute step %d now: %s", step.Order, step.Title)
	if step.Description != "" {
		fmt.Fprintf(&usr, "\n%s", step.Description)
	}

	return sys.String(), usr.String(), nil
}
