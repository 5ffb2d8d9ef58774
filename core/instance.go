package core

import "time"

// InstanceStatus enumerates the lifecycle states of a remote execution instance.
type InstanceStatus string

const (
	// InstanceRunning means the instance is live and may execute steps.
	InstanceRunning InstanceStatus = "running"
	// InstancePaused means execution is suspended; it can resume later.
	InstancePaused InstanceStatus = "paused"
	// InstanceStopped means the instance was shut down out-of-band.
	InstanceStopped InstanceStatus = "stopped"
	// InstanceError means the instance is in an unrecoverable provider error state.
	InstanceError InstanceStatus = "error"
)

// Instance is a long-lived remote execution target (a provider-side browser
// session) that plans run against. The engine only ever reads its status;
// lifecycle mutations happen through a separate API.
type Instance struct {
	ID          string         `json:"id"`
	SiteID      string         `json:"site_id"`
	UserID      string         `json:"user_id,omitempty"`
	ProviderRef string         `json:"provider_ref"`
	Status      InstanceStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsRunning reports whether the instance can currently execute work.
func (i *Instance) IsRunning() bool { return i.Status == InstanceRunning }
