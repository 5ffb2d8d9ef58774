package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/growforge/planmesh/executor"
)

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result *executor.Result
		want   Outcome
	}{
		{
			name:   "structured completed wins over ambiguous text",
			result: &executor.Result{Text: "some rambling", Report: &executor.StepReport{Status: "completed"}},
			want:   OutcomeCompleted,
		},
		{
			name:   "structured failed",
			result: &executor.Result{Report: &executor.StepReport{Status: "failed", Reason: "element not found"}},
			want:   OutcomeFailed,
		},
		{
			name:   "structured needs_human",
			result: &executor.Result{Report: &executor.StepReport{Status: "needs_human"}},
			want:   OutcomeNeedsHuman,
		},
		{
			name:   "structured unknown status defaults to in_progress",
			result: &executor.Result{Report: &executor.StepReport{Status: "wat"}},
			want:   OutcomeInProgress,
		},
		{
			name:   "text completion phrasing",
			result: &executor.Result{Text: "The post was published. Step completed successfully."},
			want:   OutcomeCompleted,
		},
		{
			name:   "text blocker phrasing",
			result: &executor.Result{Text: "Unable to find the submit button on the page."},
			want:   OutcomeFailed,
		},
		{
			name:   "text captcha wins over completion phrasing",
			result: &executor.Result{Text: "Step completed except a captcha appeared and blocks submission."},
			want:   OutcomeNeedsHuman,
		},
		{
			name:   "ambiguous text defaults to in_progress",
			result: &executor.Result{Text: "I navigated to the dashboard and reviewed the form."},
			want:   OutcomeInProgress,
		},
		{
			name:   "empty result",
			result: nil,
			want:   OutcomeInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := classifyOutcome(tt.result)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyOutcome_ReasonFallsBackToText(t *testing.T) {
	result := &executor.Result{
		Text:   "All done here.",
		Report: &executor.StepReport{Status: "completed"},
	}
	_, reason := classifyOutcome(result)
	assert.Equal(t, "All done here.", reason)
}
