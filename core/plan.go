package core

import (
	"math"
	"sort"
	"time"
)

// PlanStatus enumerates the lifecycle states of a plan.
type PlanStatus string

const (
	PlanPending    PlanStatus = "pending"
	PlanInProgress PlanStatus = "in_progress"
	PlanPaused     PlanStatus = "paused"
	PlanCompleted  PlanStatus = "completed"
	PlanFailed     PlanStatus = "failed"
)

// IsTerminal reports whether the plan can never execute again.
func (s PlanStatus) IsTerminal() bool { return s == PlanCompleted || s == PlanFailed }

// StepStatus enumerates the lifecycle states of a single step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// IsTerminal reports whether the step has reached a final state.
func (s StepStatus) IsTerminal() bool { return s == StepCompleted || s == StepFailed }

// Plan is an ordered, resumable unit of automation work bound to exactly one
// instance. Steps are consumed strictly in ascending Order; the free-text
// Title/Description double as execution instructions for legacy plans that
// carry no granular steps.
type Plan struct {
	ID                 string     `json:"id"`
	InstanceID         string     `json:"instance_id"`
	SiteID             string     `json:"site_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             PlanStatus `json:"status"`
	Steps              []Step     `json:"steps"`
	StepsTotal         int        `json:"steps_total"`
	StepsCompleted     int        `json:"steps_completed"`
	ProgressPercentage int        `json:"progress_percentage"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Step is the smallest schedulable unit inside a plan.
type Step struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"plan_id"`
	Order       int        `json:"order"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SortSteps normalizes the step slice into ascending Order. The sort is
// stable so ties keep their insertion order.
func (p *Plan) SortSteps() {
	sort.SliceStable(p.Steps, func(i, j int) bool { return p.Steps[i].Order < p.Steps[j].Order })
}

// CurrentStep returns the lowest-order step that is not in a terminal state,
// or nil when every step is terminal. Callers must have sorted the steps.
func (p *Plan) CurrentStep() *Step {
	for i := range p.Steps {
		if !p.Steps[i].Status.IsTerminal() {
			return &p.Steps[i]
		}
	}
	return nil
}

// RecomputeProgress refreshes the aggregate counters from the step slice.
// ProgressPercentage is round(100 * completed / total); a plan with no steps
// reports zero progress.
func (p *Plan) RecomputeProgress() {
	p.StepsTotal = len(p.Steps)
	terminal := 0
	for i := range p.Steps {
		if p.Steps[i].Status.IsTerminal() {
			terminal++
		}
	}
	p.StepsCompleted = terminal
	if p.StepsTotal == 0 {
		p.ProgressPercentage = 0
		return
	}
	p.ProgressPercentage = int(math.Round(100 * float64(terminal) / float64(p.StepsTotal)))
}

// AllStepsSucceeded reports whether every step is terminal and none failed.
func (p *Plan) AllStepsSucceeded() bool {
	if len(p.Steps) == 0 {
		return false
	}
	for i := range p.Steps {
		if p.Steps[i].Status != StepCompleted {
			return false
		}
	}
	return true
}
