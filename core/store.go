package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// InstanceStore reads and updates instance rows. The engine itself only
// reads; writes happen through the lifecycle API sharing the same store.
type InstanceStore interface {
	GetInstance(ctx context.Context, id string) (*Instance, error)
	UpdateInstanceStatus(ctx context.Context, id string, status InstanceStatus) error
}

// PlanStore persists plans together with their ordered steps.
type PlanStore interface {
	GetPlan(ctx context.Context, id string) (*Plan, error)
	// LatestActivePlan returns the most recently created plan for the
	// instance whose status is not terminal, or ErrNotFound.
	LatestActivePlan(ctx context.Context, instanceID string) (*Plan, error)
	// HasCompletedPlan reports whether any plan on the instance has already
	// reached the completed state (chain detection).
	HasCompletedPlan(ctx context.Context, instanceID string) (bool, error)
	UpdatePlan(ctx context.Context, plan *Plan) error
	UpdateStep(ctx context.Context, step *Step) error
	// InsertStep persists a synthesized step for a plan that had none.
	InsertStep(ctx context.Context, step *Step) error
}

// AuthSessionStore reads the site-scoped session pool and records usage
// recency. Only the session coordinator mutates LastUsedAt.
type AuthSessionStore interface {
	ValidSessions(ctx context.Context, siteID string) ([]AuthSession, error)
	TouchSession(ctx context.Context, id string) error
}

// LogStore appends to and reads the per-instance audit trail.
type LogStore interface {
	AppendLog(ctx context.Context, entry LogEntry) error
	// RecentActions returns up to limit user_action/agent_action entries for
	// the instance in chronological order.
	RecentActions(ctx context.Context, instanceID string, limit int) ([]LogEntry, error)
}

// Store aggregates every persistence interface the engine needs. Concrete
// backends (sqlite, in-memory) implement all of them on one type.
type Store interface {
	InstanceStore
	PlanStore
	AuthSessionStore
	LogStore
}
