package models

import (
	"time"

	"github.com/google/uuid"
)

// InstanceStatus is the lifecycle state of a step instance
type InstanceStatus string

const (
	// StatusPending means the compute instance has been requested
	StatusPending InstanceStatus = "pending"
	// StatusActive means the compute platform reports the instance running
	StatusActive InstanceStatus = "active"
	// StatusTagged means the VLAN pair has been assigned
	StatusTagged InstanceStatus = "tagged"
)

// StepInstance is a concrete provisioned VM realizing one chain step.
// vlan_in/vlan_out stay null until allocation moves the instance to tagged.
type StepInstance struct {
	ID                 uuid.UUID      `json:"id"`
	ChainStepID        uuid.UUID      `json:"chain_step_id"`
	ExternalInstanceID string         `json:"external_instance_id"`
	NetworkID          string         `json:"network_id"`
	VlanIn             *int           `json:"vlan_in,omitempty"`
	VlanOut            *int           `json:"vlan_out,omitempty"`
	Status             InstanceStatus `json:"status"`
	TenantID           string         `json:"tenant_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
