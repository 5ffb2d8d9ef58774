// Package core defines the domain model shared by every planmesh component:
// instances, plans, steps, auth sessions, log entries, the store interfaces
// that persist them and the control-signal errors used for cooperative
// cancellation during step execution.
package core
