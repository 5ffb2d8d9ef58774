package engine

import (
	"sync"

	"github.com/growforge/planmesh/core"
)

// leaseTable hands out in-process per-instance execution tokens. Acquiring
// the token for an instance that already holds one fails with BUSY, so two
// concurrent invocations never race on the same browser state.
type leaseTable struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newLeaseTable() *leaseTable {
	return &leaseTable{held: make(map[string]struct{})}
}

// acquire takes the instance's execution token and returns its release
// function. The release function is idempotent.
func (t *leaseTable) acquire(instanceID string) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.held[instanceID]; busy {
		return nil, core.NewError(core.CodeBusy, "instance %s is already executing a step", instanceID)
	}
	t.held[instanceID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.held, instanceID)
			t.mu.Unlock()
		})
	}
	return release, nil
}
