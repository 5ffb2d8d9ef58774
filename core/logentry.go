package core

import (
	"time"

	"github.com/google/uuid"
)

// LogKind categorizes a log entry.
type LogKind string

const (
	LogUserAction  LogKind = "user_action"
	LogAgentAction LogKind = "agent_action"
	LogToolCall    LogKind = "tool_call"
	LogError       LogKind = "error"
)

// LogEntry is an immutable, append-only record of one action tied to an
// instance. Recent user/agent entries are fed back into the prompt as
// narrative history; the full stream serves as an audit trail.
type LogEntry struct {
	ID         string     `json:"id"`
	InstanceID string     `json:"instance_id"`
	Kind       LogKind    `json:"kind"`
	Content    string     `json:"content"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolArgs   string     `json:"tool_args,omitempty"`
	ToolResult string     `json:"tool_result,omitempty"`
	Usage      TokenUsage `json:"usage,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewLogEntry constructs a log entry with a fresh ID and UTC timestamp.
func NewLogEntry(instanceID string, kind LogKind, content string) LogEntry {
	return LogEntry{
		ID:         NewID(),
		InstanceID: instanceID,
		Kind:       kind,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewToolCallEntry records one executor sub-action against an instance.
func NewToolCallEntry(instanceID, toolName, args, result string, usage TokenUsage) LogEntry {
	e := NewLogEntry(instanceID, LogToolCall, toolName)
	e.ToolName = toolName
	e.ToolArgs = args
	e.ToolResult = result
	e.Usage = usage
	return e
}

// NewID generates a unique identifier for domain entities.
func NewID() string { return uuid.NewString() }

// TokenUsage captures model token consumption for one call or an aggregate.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another usage sample into the receiver.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
