package executor

import (
	"context"

	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/tool"
)

// Message roles used in model conversations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a function call request surfaced by a model provider,
// unified across vendors so the loop does not need per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolResponse carries the outcome of a previously issued tool call back to
// the model.
type ToolResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Message is one turn in a model conversation. Exactly one of Text,
// ToolCalls or ToolResponses is typically populated depending on Role.
type Message struct {
	Role          string         `json:"role"`
	Text          string         `json:"text,omitempty"`
	ToolCalls     []ToolCall     `json:"tool_calls,omitempty"`
	ToolResponses []ToolResponse `json:"tool_responses,omitempty"`
}

// ModelRequest captures the normalized model input produced by the loop.
type ModelRequest struct {
	System   string            `json:"system"`
	Messages []Message         `json:"messages"`
	Tools    []tool.Definition `json:"tools,omitempty"`
}

// ModelResponse is the normalized output of one generation call.
type ModelResponse struct {
	Text         string          `json:"text"`
	ToolCalls    []ToolCall      `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        core.TokenUsage `json:"usage"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the loop to drive generation.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error)

	// Info returns information about the model implementation.
	Info() Info
}
