// Package memory provides a volatile implementation of every core store
// interface, backed by process-local maps. It is safe for concurrent access
// and best suited for tests and ephemeral demo servers. Returned entities
// are copies so callers cannot mutate internal state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/growforge/planmesh/core"
)

// Store is the in-memory core.Store implementation.
type Store struct {
	mu        sync.RWMutex
	instances map[string]*core.Instance
	plans     map[string]*core.Plan
	sessions  map[string]*core.AuthSession
	logs      []core.LogEntry
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		instances: make(map[string]*core.Instance),
		plans:     make(map[string]*core.Plan),
		sessions:  make(map[string]*core.AuthSession),
	}
}

// PutInstance inserts or replaces an instance row (test/seeding helper).
func (s *Store) PutInstance(inst *core.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inst
	s.instances[inst.ID] = &cp
}

// PutPlan inserts or replaces a plan row with its steps (test/seeding helper).
func (s *Store) PutPlan(plan *core.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = clonePlan(plan)
}

// PutSession inserts or replaces an auth session row (test/seeding helper).
func (s *Store) PutSession(sess *core.AuthSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
}

// GetInstance implements core.InstanceStore.
func (s *Store) GetInstance(_ context.Context, id string) (*core.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

// UpdateInstanceStatus implements core.InstanceStore.
func (s *Store) UpdateInstanceStatus(_ context.Context, id string, status core.InstanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return core.ErrNotFound
	}
	inst.Status = status
	inst.UpdatedAt = time.Now().UTC()
	return nil
}

// GetPlan implements core.PlanStore.
func (s *Store) GetPlan(_ context.Context, id string) (*core.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clonePlan(plan), nil
}

// LatestActivePlan implements core.PlanStore.
func (s *Store) LatestActivePlan(_ context.Context, instanceID string) (*core.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []*core.Plan
	for _, p := range s.plans {
		if p.InstanceID == instanceID && !p.Status.IsTerminal() {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil, core.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return clonePlan(candidates[0]), nil
}

// HasCompletedPlan implements core.PlanStore.
func (s *Store) HasCompletedPlan(_ context.Context, instanceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.plans {
		if p.InstanceID == instanceID && p.Status == core.PlanCompleted {
			return true, nil
		}
	}
	return false, nil
}

// UpdatePlan implements core.PlanStore.
func (s *Store) UpdatePlan(_ context.Context, plan *core.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[plan.ID]; !ok {
		return core.ErrNotFound
	}
	s.plans[plan.ID] = clonePlan(plan)
	return nil
}

// UpdateStep implements core.PlanStore.
func (s *Store) UpdateStep(_ context.Context, step *core.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[step.PlanID]
	if !ok {
		return core.ErrNotFound
	}
	for i := range plan.Steps {
		if plan.Steps[i].ID == step.ID {
			plan.Steps[i] = *step
			return nil
		}
	}
	return core.ErrNotFound
}

// InsertStep implements core.PlanStore.
func (s *Store) InsertStep(_ context.Context, step *core.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[step.PlanID]
	if !ok {
		return core.ErrNotFound
	}
	plan.Steps = append(plan.Steps, *step)
	return nil
}

// ValidSessions implements core.AuthSessionStore.
func (s *Store) ValidSessions(_ context.Context, siteID string) ([]core.AuthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AuthSession
	for _, sess := range s.sessions {
		if sess.SiteID == siteID && sess.IsValid {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out, nil
}

// TouchSession implements core.AuthSessionStore.
func (s *Store) TouchSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return core.ErrNotFound
	}
	sess.LastUsedAt = time.Now().UTC()
	return nil
}

// AppendLog implements core.LogStore.
func (s *Store) AppendLog(_ context.Context, entry core.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

// RecentActions implements core.LogStore.
func (s *Store) RecentActions(_ context.Context, instanceID string, limit int) ([]core.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.LogEntry
	for _, e := range s.logs {
		if e.InstanceID != instanceID {
			continue
		}
		if e.Kind == core.LogUserAction || e.Kind == core.LogAgentAction {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Logs returns every log entry appended so far (test helper).
func (s *Store) Logs() []core.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

func clonePlan(p *core.Plan) *core.Plan {
	cp := *p
	cp.Steps = make([]core.Step, len(p.Steps))
	copy(cp.Steps, p.Steps)
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
