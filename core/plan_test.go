package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planWithSteps(statuses ...StepStatus) *Plan {
	p := &Plan{ID: "p1", Status: PlanInProgress}
	for i, s := range statuses {
		p.Steps = append(p.Steps, Step{ID: NewID(), PlanID: "p1", Order: i + 1, Status: s})
	}
	return p
}

func TestSortStepsIsStable(t *testing.T) {
	p := &Plan{Steps: []Step{
		{ID: "b", Order: 2},
		{ID: "a1", Order: 1},
		{ID: "a2", Order: 1},
		{ID: "c", Order: 3},
	}}
	p.SortSteps()

	ids := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, ids)
}

func TestCurrentStep(t *testing.T) {
	p := planWithSteps(StepCompleted, StepPending, StepPending)
	step := p.CurrentStep()
	require.NotNil(t, step)
	assert.Equal(t, 2, step.Order)

	p = planWithSteps(StepCompleted, StepFailed)
	assert.Nil(t, p.CurrentStep())

	// A failed step is terminal, so the next one is current.
	p = planWithSteps(StepFailed, StepPending)
	step = p.CurrentStep()
	require.NotNil(t, step)
	assert.Equal(t, 2, step.Order)
}

func TestRecomputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []StepStatus
		completed int
		percent   int
	}{
		{"empty", nil, 0, 0},
		{"none terminal", []StepStatus{StepPending, StepInProgress}, 0, 0},
		{"one of three", []StepStatus{StepCompleted, StepPending, StepPending}, 1, 33},
		{"two of three", []StepStatus{StepCompleted, StepFailed, StepPending}, 2, 67},
		{"all", []StepStatus{StepCompleted, StepCompleted}, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := planWithSteps(tt.statuses...)
			p.RecomputeProgress()
			assert.Equal(t, len(tt.statuses), p.StepsTotal)
			assert.Equal(t, tt.completed, p.StepsCompleted)
			assert.Equal(t, tt.percent, p.ProgressPercentage)
			assert.LessOrEqual(t, p.StepsCompleted, p.StepsTotal)
		})
	}
}

func TestAllStepsSucceeded(t *testing.T) {
	assert.True(t, planWithSteps(StepCompleted, StepCompleted).AllStepsSucceeded())
	assert.False(t, planWithSteps(StepCompleted, StepFailed).AllStepsSucceeded())
	assert.False(t, planWithSteps(StepCompleted, StepPending).AllStepsSucceeded())
	assert.False(t, planWithSteps().AllStepsSucceeded())
}

func TestStatusTerminality(t *testing.T) {
	assert.True(t, PlanCompleted.IsTerminal())
	assert.True(t, PlanFailed.IsTerminal())
	assert.False(t, PlanPaused.IsTerminal())
	assert.False(t, PlanInProgress.IsTerminal())
	assert.False(t, PlanPending.IsTerminal())

	assert.True(t, StepCompleted.IsTerminal())
	assert.True(t, StepFailed.IsTerminal())
	assert.False(t, StepPending.IsTerminal())
	assert.False(t, StepInProgress.IsTerminal())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBusy, CodeOf(NewError(CodeBusy, "busy")))
	assert.Equal(t, CodeInternal, CodeOf(assert.AnError))
}
