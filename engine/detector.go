package engine

import (
	"strings"

	"github.com/growforge/planmesh/executor"
)

// Outcome is the classified result of one step execution.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeNeedsHuman Outcome = "needs_human"
	OutcomeInProgress Outcome = "in_progress"
)

var completionPhrases = []string{
	"step completed",
	"task completed",
	"successfully completed",
	"completed successfully",
	"done with this step",
	"finished the step",
	"step is complete",
	"task is complete",
}

var humanPhrases = []string{
	"captcha",
	"verification code",
	"two-factor",
	"2fa",
	"human intervention",
	"manual intervention",
	"please log in",
	"login required",
	"credentials required",
}

var failurePhrases = []string{
	"unable to",
	"could not",
	"cannot proceed",
	"failed to",
	"error:",
	"blocked",
	"step failed",
}

// classifyOutcome maps the executor's raw result to exactly one outcome.
// A structured report always wins. The text heuristics are a best-effort
// fallback biased toward in_progress: ambiguous output must never be
// silently treated as completed, since that would skip remaining work.
func classifyOutcome(result *executor.Result) (Outcome, string) {
	if result == nil {
		return OutcomeInProgress, ""
	}

	if result.Report != nil {
		reason := result.Report.Reason
		if reason == "" {
			reason = result.Text
		}
		switch result.Report.Status {
		case "completed":
			return OutcomeCompleted, reason
		case "failed":
			return OutcomeFailed, reason
		case "needs_human":
			return OutcomeNeedsHuman, reason
		default:
			return OutcomeInProgress, reason
		}
	}

	text := strings.ToLower(result.Text)
	for _, p := range humanPhrases {
		if strings.Contains(text, p) {
			return OutcomeNeedsHuman, result.Text
		}
	}
	for _, p := range completionPhrases {
		if strings.Contains(text, p) {
			return OutcomeCompleted, result.Text
		}
	}
	for _, p := range failurePhrases {
		if strings.Contains(text, p) {
			return OutcomeFailed, result.Text
		}
	}

	return OutcomeInProgress, result.Text
}
