package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/store/memory"
)

func TestApplyOutcome_ProgressInvariants(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepPending, core.StepPending, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	outcomes := []Outcome{OutcomeCompleted, OutcomeInProgress, OutcomeFailed, OutcomeCompleted}
	stepIdx := []int{0, 1, 1, 2}

	for i, outcome := range outcomes {
		step := plan.Steps[stepIdx[i]]
		_, err := eng.applyOutcome(context.Background(), plan, &step, outcome, "r")
		require.NoError(t, err)

		assert.LessOrEqual(t, plan.StepsCompleted, plan.StepsTotal)
		want := int(math.Round(100 * float64(plan.StepsCompleted) / float64(plan.StepsTotal)))
		assert.Equal(t, want, plan.ProgressPercentage)
	}
}

func TestApplyOutcome_AllSucceededCompletesPlanOnce(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepCompleted, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	step := plan.Steps[1]
	nowCompleted, err := eng.applyOutcome(context.Background(), plan, &step, OutcomeCompleted, "done")
	require.NoError(t, err)

	assert.True(t, nowCompleted)
	assert.Equal(t, core.PlanCompleted, plan.Status)
	require.NotNil(t, plan.CompletedAt)
	assert.Equal(t, 100, plan.ProgressPercentage)
}

func TestApplyOutcome_FailedStepLeavesPlanRetriable(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepPending, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	step := plan.Steps[0]
	nowCompleted, err := eng.applyOutcome(context.Background(), plan, &step, OutcomeFailed, "element not found")
	require.NoError(t, err)

	assert.False(t, nowCompleted)
	assert.Equal(t, core.PlanInProgress, plan.Status)
	assert.Equal(t, "element not found", plan.Steps[0].Result)
}

func TestApplyOutcome_AllTerminalWithFailureFailsPlan(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepCompleted, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	step := plan.Steps[1]
	nowCompleted, err := eng.applyOutcome(context.Background(), plan, &step, OutcomeFailed, "gave up")
	require.NoError(t, err)

	assert.False(t, nowCompleted)
	assert.Equal(t, core.PlanFailed, plan.Status)
}

func TestApplyOutcome_NeedsHumanPausesPlan(t *testing.T) {
	st := memory.NewStore()
	inst := seedInstance(st, core.InstanceRunning)
	plan := seedPlan(st, inst, core.StepPending, core.StepPending)
	eng := newTestEngine(st, &fakeProvider{}, textExecutor(""), &countingNotifier{})

	step := plan.Steps[0]
	_, err := eng.applyOutcome(context.Background(), plan, &step, OutcomeNeedsHuman, "captcha")
	require.NoError(t, err)

	assert.Equal(t, core.PlanPaused, plan.Status)
	assert.Equal(t, core.StepInProgress, plan.Steps[0].Status)
}
