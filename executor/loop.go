package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/growforge/planmesh/logging"
	"github.com/growforge/planmesh/tool"
)

// reportToolName is the reserved tool the model uses to emit a structured
// step outcome. Calls to it are captured into Result.Report instead of being
// dispatched to a tool binding, and they do not count as sub-actions.
const reportToolName = "report_step_status"

const defaultMaxIterations = 12

// LoopOptions configures a Loop instance.
type LoopOptions struct {
	MaxIterations int
	Logger        logging.Logger
}

// Loop is the default Executor: a sequential reason/act loop that feeds tool
// results back into the conversation until the model stops calling tools.
// It has no mutable state after construction and is safe for concurrent use.
type Loop struct {
	model         Model
	maxIterations int
	logger        logging.Logger
}

// NewLoop constructs a Loop over the given model.
func NewLoop(model Model, optFns ...func(o *LoopOptions)) *Loop {
	opts := LoopOptions{
		MaxIterations: defaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Loop{model: model, maxIterations: opts.MaxIterations, logger: opts.Logger}
}

// Execute implements Executor. The loop ends when the model responds without
// tool calls, when it reports a terminal step status, or when the iteration
// budget runs out (classified as in_progress by the caller's detector).
func (l *Loop) Execute(ctx context.Context, req Request) (*Result, error) {
	maxIters := req.MaxIterations
	if maxIters <= 0 {
		maxIters = l.maxIterations
	}

	defs := append(tool.Definitions(req.Tools), reportToolDefinition())
	byName := make(map[string]tool.Tool, len(req.Tools))
	for _, t := range req.Tools {
		byName[t.Name()] = t
	}

	messages := []Message{{Role: RoleUser, Text: req.Prompt}}
	result := &Result{}

	for i := 0; i < maxIters; i++ {
		resp, err := l.model.Generate(ctx, ModelRequest{
			System:   req.System,
			Messages: messages,
			Tools:    defs,
		})
		if err != nil {
			return result, fmt.Errorf("model generation failed: %w", err)
		}
		result.Usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			result.Text = resp.Text
			return result, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		var responses []ToolResponse
		for _, tc := range resp.ToolCalls {
			if tc.Name == reportToolName {
				report, err := parseReport(tc.Arguments)
				if err != nil {
					responses = append(responses, ToolResponse{
						ID: tc.ID, Name: tc.Name, Content: "Error: " + err.Error(),
					})
					continue
				}
				result.Report = report
				if resp.Text != "" {
					result.Text = resp.Text
				}
				return result, nil
			}

			sub := l.callTool(ctx, byName, tc, result)
			responses = append(responses, ToolResponse{ID: tc.ID, Name: tc.Name, Content: sub.Result})

			if req.OnStep != nil {
				if err := req.OnStep(sub); err != nil {
					return result, err
				}
			}
		}

		messages = append(messages, Message{Role: RoleTool, ToolResponses: responses})
	}

	result.Text = "Reached the maximum number of reasoning steps for this invocation."
	return result, nil
}

// callTool dispatches one tool call and folds the outcome into the result's
// sub-step trace. Tool failures are reported back to the model as text, not
// surfaced as loop errors.
func (l *Loop) callTool(ctx context.Context, byName map[string]tool.Tool, tc ToolCall, result *Result) SubStep {
	sub := SubStep{Tool: tc.Name, Arguments: tc.Arguments}

	t, ok := byName[tc.Name]
	if !ok {
		sub.Result = fmt.Sprintf("Error: tool %s not found", tc.Name)
		result.SubSteps = append(result.SubSteps, sub)
		return sub
	}

	var args map[string]any
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			sub.Result = fmt.Sprintf("Error: invalid arguments: %v", err)
			result.SubSteps = append(result.SubSteps, sub)
			return sub
		}
	}

	l.logger.Debug("executor.tool.call", "tool", tc.Name, "args", tc.Arguments)

	out, err := t.Call(ctx, args)
	if err != nil {
		sub.Result = fmt.Sprintf("Error: %v", err)
	} else {
		sub.Result = stringify(out)
	}

	result.SubSteps = append(result.SubSteps, sub)
	return sub
}

func parseReport(arguments string) (*StepReport, error) {
	var report StepReport
	if err := json.Unmarshal([]byte(arguments), &report); err != nil {
		return nil, fmt.Errorf("invalid report arguments: %w", err)
	}
	if report.Status == "" {
		return nil, fmt.Errorf("report missing status")
	}
	return &report, nil
}

func reportToolDefinition() tool.Definition {
	return tool.Definition{
		Name: reportToolName,
		Description: "Report the outcome of the current step once its fate is clear. " +
			"Use status 'completed' only when the step's goal is fully achieved, " +
			"'failed' when it cannot be achieved, 'needs_human' when human " +
			"intervention (login, captcha, 2fa) is required, and 'in_progress' " +
			"when more invocations are needed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status": map[string]any{
					"type": "string",
					"enum": []string{"completed", "failed", "in_progress", "needs_human"},
				},
				"reason": map[string]any{"type": "string"},
			},
			"required": []string{"status"},
		},
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
