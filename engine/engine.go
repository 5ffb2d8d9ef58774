package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growforge/planmesh/browser"
	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/executor"
	"github.com/growforge/planmesh/logging"
	"github.com/growforge/planmesh/notify"
)

const (
	defaultHistoryLimit  = 10
	defaultProbeAttempts = 3
	defaultProbeBackoff  = 2 * time.Second
)

// Options configure an Engine.
type Options struct {
	Logger logging.Logger

	// Detector computes required session domains from plan/step text.
	Detector DomainDetector

	// HistoryLimit bounds the number of log entries fed into the prompt.
	HistoryLimit int

	// ProbeAttempts bounds tool-binding validation; ProbeBackoff is the
	// delay between attempts.
	ProbeAttempts int
	ProbeBackoff  time.Duration

	// MaxIterations caps the executor's reasoning loop per step. Zero keeps
	// the executor's own default.
	MaxIterations int
}

// Engine advances one plan step per invocation. It is safe for concurrent
// use; per-instance serialization is enforced through the internal lease.
type Engine struct {
	store    core.Store
	provider browser.Provider
	executor executor.Executor
	notifier notify.CompletionNotifier
	logger   logging.Logger
	detector DomainDetector
	leases   *leaseTable

	historyLimit  int
	probeAttempts int
	probeBackoff  time.Duration
	maxIterations int
}

// New constructs an Engine over its collaborators.
func New(store core.Store, provider browser.Provider, exec executor.Executor, notifier notify.CompletionNotifier, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		Detector:      NewKeywordDetector(),
		HistoryLimit:  defaultHistoryLimit,
		ProbeAttempts: defaultProbeAttempts,
		ProbeBackoff:  defaultProbeBackoff,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		store:         store,
		provider:      provider,
		executor:      exec,
		notifier:      notifier,
		logger:        opts.Logger,
		detector:      opts.Detector,
		leases:        newLeaseTable(),
		historyLimit:  opts.HistoryLimit,
		probeAttempts: opts.ProbeAttempts,
		probeBackoff:  opts.ProbeBackoff,
		maxIterations: opts.MaxIterations,
	}
}

// ExecuteStep runs the full pipeline for one invocation: verify liveness,
// resolve the plan and current step, build session context, connect and
// validate tool bindings, execute exactly one step, classify the outcome,
// persist progress, and fire the completion trigger when the plan finishes.
// Instance/plan status is re-read between every phase so out-of-band pause
// and stop commands end the invocation with an informational payload.
func (e *Engine) ExecuteStep(ctx context.Context, req Request) (*Response, error) {
	if req.InstanceID == "" {
		return nil, core.NewError(core.CodeInstanceNotFound, "instance_id is required")
	}

	release, err := e.leases.acquire(req.InstanceID)
	if err != nil {
		return nil, err
	}
	defer release()

	inst, err := e.store.GetInstance(ctx, req.InstanceID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NewError(core.CodeInstanceNotFound, "instance %s not found", req.InstanceID)
		}
		return nil, fmt.Errorf("read instance %s: %w", req.InstanceID, err)
	}
	if !inst.IsRunning() {
		return instanceHaltedResponse(inst), nil
	}

	res, err := e.resolve(ctx, inst, req.PlanID)
	if err != nil {
		return nil, err
	}
	if res.settled != nil {
		return res.settled, nil
	}
	plan, step := res.plan, res.step

	if resp, err := e.checkpoint(ctx, inst.ID, plan.ID); resp != nil || err != nil {
		return resp, err
	}

	sc, err := e.sessionContextFor(ctx, inst, plan, step)
	if err != nil {
		return nil, err
	}

	if resp, err := e.checkpoint(ctx, inst.ID, plan.ID); resp != nil || err != nil {
		return resp, err
	}

	handle, err := e.provider.Connect(ctx, inst.ProviderRef)
	if err != nil {
		return nil, core.NewError(core.CodeToolsUnavailable, "connect to instance %s: %v", inst.ID, err)
	}
	defer handle.Close()

	tools, err := e.validateTools(ctx, handle)
	if err != nil {
		return nil, err
	}
	if err := e.authenticate(ctx, handle, sc); err != nil {
		e.logger.Warn("engine.auth.restore_failed", "instance_id", inst.ID, "error", err)
	}

	if resp, err := e.checkpoint(ctx, inst.ID, plan.ID); resp != nil || err != nil {
		return resp, err
	}

	if err := e.markStepStarted(ctx, plan, step); err != nil {
		return nil, err
	}

	system, prompt, err := e.buildPrompts(ctx, inst, plan, step, sc, req.UserInstruction)
	if err != nil {
		return nil, err
	}

	e.logger.Info("engine.step.executing", "plan_id", plan.ID, "step_id", step.ID, "order", step.Order)
	result, execErr := e.executor.Execute(ctx, executor.Request{
		System:        system,
		Prompt:        prompt,
		Tools:         tools,
		OnStep:        e.stepMonitor(ctx, inst.ID, plan.ID),
		MaxIterations: e.maxIterations,
	})

	if execErr != nil {
		if resp := e.controlSignalResponse(ctx, inst.ID, plan.ID, execErr); resp != nil {
			return resp, nil
		}
		// Any other executor failure becomes a failed step; bookkeeping
		// below still runs so partial progress is never lost.
		e.logger.Error("engine.step.failed", "plan_id", plan.ID, "step_id", step.ID, "error", execErr)
	}

	outcome, resultText := e.classify(result, execErr)

	nowCompleted, err := e.applyOutcome(ctx, plan, step, outcome, resultText)
	if err != nil {
		return nil, err
	}
	e.appendStepLog(ctx, inst.ID, step, outcome, resultText)

	if nowCompleted {
		e.fireCompletion(ctx, plan)
	}

	resp := &Response{
		StepStatus:    outcome,
		StepResult:    resultText,
		PlanProgress:  progressOf(plan),
		PlanID:        plan.ID,
		SessionsInfo:  sc.summary(),
		PlanCompleted: nowCompleted,
	}
	if result != nil {
		usage := result.Usage
		resp.TokenUsage = &usage
	}
	return resp, nil
}

// markStepStarted moves the step and its plan into in_progress before the
// executor runs, so a crash mid-step leaves an honest intermediate state.
func (e *Engine) markStepStarted(ctx context.Context, plan *core.Plan, step *core.Step) error {
	now := time.Now().UTC()

	if step.StartedAt == nil {
		step.StartedAt = &now
	}
	step.Status = core.StepInProgress
	if err := e.store.UpdateStep(ctx, step); err != nil {
		return fmt.Errorf("mark step %s started: %w", step.ID, err)
	}

	if plan.Status == core.PlanPending {
		plan.Status = core.PlanInProgress
		plan.UpdatedAt = now
		if err := e.store.UpdatePlan(ctx, plan); err != nil {
			return fmt.Errorf("mark plan %s started: %w", plan.ID, err)
		}
	}
	return nil
}

// controlSignalResponse maps a mid-step pause/stop signal to its payload,
// re-reading the rows so the payload reflects the actual current state. The
// in-flight step deliberately stays non-terminal.
func (e *Engine) controlSignalResponse(ctx context.Context, instanceID, planID string, execErr error) *Response {
	switch {
	case errors.Is(execErr, core.ErrInstanceStopped):
		if inst, err := e.store.GetInstance(ctx, instanceID); err == nil {
			return instanceHaltedResponse(inst)
		}
		return &Response{WaitingForInstructions: true, InstanceStopped: true, Message: "Instance stopped during execution."}
	case errors.Is(execErr, core.ErrPlanPaused):
		if plan, err := e.store.GetPlan(ctx, planID); err == nil {
			if plan.Status.IsTerminal() {
				return planSettledResponse(plan)
			}
			return planPausedResponse(plan)
		}
		return &Response{WaitingForInstructions: true, PlanPaused: true, CanResume: true, Message: "Plan paused during execution."}
	default:
		return nil
	}
}

// classify folds an executor error into the outcome, otherwise delegates to
// the detector.
func (e *Engine) classify(result *executor.Result, execErr error) (Outcome, string) {
	if execErr != nil {
		return OutcomeFailed, fmt.Sprintf("Execution error: %v", execErr)
	}
	return classifyOutcome(result)
}

// appendStepLog records the step outcome in the instance's audit trail. The
// agent_action entries become the narrative history of later prompts.
func (e *Engine) appendStepLog(ctx context.Context, instanceID string, step *core.Step, outcome Outcome, resultText string) {
	content := fmt.Sprintf("Step %d (%s) finished with status %s", step.Order, step.Title, outcome)
	if resultText != "" {
		content += ": " + resultText
	}
	entry := core.NewLogEntry(instanceID, core.LogAgentAction, content)
	if err := e.store.AppendLog(ctx, entry); err != nil {
		e.logger.Warn("engine.step.log_failed", "instance_id", instanceID, "error", err)
	}
}
