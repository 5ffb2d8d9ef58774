// Package engine implements the plan execution state machine. One invocation
// advances exactly one step of a plan against a long-lived remote instance,
// re-checking instance and plan status between every phase so out-of-band
// pause/stop commands take effect quickly, reusing authenticated sessions
// across a chain of plans, classifying the executor's outcome, persisting
// progress, and firing the completion trigger when a plan finishes.
package engine
