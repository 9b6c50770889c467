package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntityKind identifies which entity a delta record describes
type EntityKind string

const (
	KindChain             EntityKind = "chain"
	KindApplianceTemplate EntityKind = "appliance_template"
	KindChainStep         EntityKind = "chain_step"
	KindStepInstance      EntityKind = "step_instance"
)

// Valid reports whether the kind is one the delta log accepts
func (k EntityKind) Valid() bool {
	switch k {
	case KindChain, KindApplianceTemplate, KindChainStep, KindStepInstance:
		return true
	}
	return false
}

// Operation is the mutation type a delta record describes
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// DeltaRecord is one immutable, versioned log entry describing a single
// entity mutation. Versions are unique and increasing per tenant; records
// outlive the entities they describe.
type DeltaRecord struct {
	ID         int64           `json:"id"`
	EntityKind EntityKind      `json:"entity_kind"`
	Operation  Operation       `json:"operation"`
	TenantID   string          `json:"tenant_id"`
	Version    uint64          `json:"version"`
	Snapshot   json.RawMessage `json:"snapshot"`
	Actor      string          `json:"actor"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Method returns the consumer-facing method name for this record,
// e.g. "create_chain" or "delete_step_instance".
func (d *DeltaRecord) Method() string {
	return fmt.Sprintf("%s_%s", d.Operation, d.EntityKind)
}

// DeltaEnvelope is the wire shape of one delta, both in broadcasts and in
// catch-up responses.
type DeltaEnvelope struct {
	Version uint64          `json:"version"`
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// Envelope converts a record into its wire shape
func (d *DeltaRecord) Envelope() DeltaEnvelope {
	return DeltaEnvelope{
		Version: d.Version,
		Method:  d.Method(),
		Payload: d.Snapshot,
	}
}
