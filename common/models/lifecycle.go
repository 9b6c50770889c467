package models

// ManagedTagKey marks compute instances provisioned by this control plane.
// The reconciler ignores lifecycle events for instances without it.
const ManagedTagKey = "sfc_managed"

// LifecycleEvent is a compute-platform instance lifecycle notification
type LifecycleEvent struct {
	InstanceID string            `json:"instance_id"`
	TenantID   string            `json:"tenant_id"`
	Host       string            `json:"host"`
	State      string            `json:"state"`
	Metadata   map[string]string `json:"metadata"`
}

// IsManagedDelete reports whether the event is a deletion of a chain-managed
// instance.
func (e *LifecycleEvent) IsManagedDelete() bool {
	return e.State == "deleted" && e.Metadata[ManagedTagKey] == "true"
}
