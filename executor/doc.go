// Package executor implements the action executor: a tool-calling loop that
// drives a language model against a set of tool bindings until the model
// produces a final answer, reports a structured step status, or the
// per-invocation budget runs out. Provider adapters live in the anthropic
// and openai subpackages.
package executor
