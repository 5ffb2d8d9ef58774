package engine

import (
	"fmt"

	"github.com/growforge/planmesh/core"
)

// Request names the work for one invocation. InstanceID is required; PlanID
// selects an explicit plan instead of the latest active one; UserInstruction
// is an ad-hoc instruction folded into the plan for this and later steps.
type Request struct {
	InstanceID      string `json:"instance_id"`
	PlanID          string `json:"instance_plan_id,omitempty"`
	UserInstruction string `json:"user_instruction,omitempty"`
}

// PlanProgress summarizes plan-level completion counters.
type PlanProgress struct {
	CompletedSteps int `json:"completed_steps"`
	TotalSteps     int `json:"total_steps"`
	Percentage     int `json:"percentage"`
}

// Response is the payload of one invocation. Exactly one of two families of
// fields is populated: the waiting/settled family when the invocation could
// not (or did not need to) execute a step, or the step-result family when a
// step ran.
type Response struct {
	WaitingForInstructions bool   `json:"waiting_for_instructions,omitempty"`
	InstancePaused         bool   `json:"instance_paused,omitempty"`
	InstanceStopped        bool   `json:"instance_stopped,omitempty"`
	PlanPaused             bool   `json:"plan_paused,omitempty"`
	PlanCompleted          bool   `json:"plan_completed,omitempty"`
	PlanFailed             bool   `json:"plan_failed,omitempty"`
	Message                string `json:"message,omitempty"`
	CurrentStatus          string `json:"current_status,omitempty"`
	CanResume              bool   `json:"can_resume,omitempty"`

	StepStatus   Outcome          `json:"step_status,omitempty"`
	StepResult   string           `json:"step_result,omitempty"`
	PlanProgress *PlanProgress    `json:"plan_progress,omitempty"`
	PlanID       string           `json:"plan_id,omitempty"`
	SessionsInfo string           `json:"sessions_info,omitempty"`
	TokenUsage   *core.TokenUsage `json:"token_usage,omitempty"`
}

// instanceHaltedResponse builds the informational payload for an instance
// that is not in the running state. A paused instance can resume; a stopped
// or errored one cannot.
func instanceHaltedResponse(inst *core.Instance) *Response {
	resp := &Response{
		WaitingForInstructions: true,
		CurrentStatus:          string(inst.Status),
	}
	switch inst.Status {
	case core.InstancePaused:
		resp.InstancePaused = true
		resp.CanResume = true
		resp.Message = "Instance is paused. Resume it to continue plan execution."
	default:
		resp.InstanceStopped = true
		resp.Message = fmt.Sprintf("Instance is %s and cannot execute steps.", inst.Status)
	}
	return resp
}

// planPausedResponse builds the informational payload for a paused plan.
func planPausedResponse(plan *core.Plan) *Response {
	return &Response{
		WaitingForInstructions: true,
		PlanPaused:             true,
		CurrentStatus:          string(plan.Status),
		CanResume:              true,
		Message:                "Plan is paused. Resume it to continue execution.",
	}
}

// planSettledResponse builds the informational payload for a plan that has
// already reached a terminal state.
func planSettledResponse(plan *core.Plan) *Response {
	resp := &Response{
		WaitingForInstructions: true,
		CurrentStatus:          string(plan.Status),
		PlanID:                 plan.ID,
		PlanProgress:           progressOf(plan),
	}
	switch plan.Status {
	case core.PlanCompleted:
		resp.PlanCompleted = true
		resp.Message = "Plan has already completed."
	default:
		resp.PlanFailed = true
		resp.Message = "Plan has already failed."
	}
	return resp
}

func progressOf(plan *core.Plan) *PlanProgress {
	return &PlanProgress{
		CompletedSteps: plan.StepsCompleted,
		TotalSteps:     plan.StepsTotal,
		Percentage:     plan.ProgressPercentage,
	}
}
