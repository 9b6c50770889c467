package models

import "github.com/google/uuid"

// ChainStep is one ordered position in a chain, referencing an appliance
// template. Sequence numbers are unique within a chain; ordering is
// sequence_number ascending with id as the tie-break for legacy rows.
type ChainStep struct {
	ID                  uuid.UUID `json:"id"`
	ChainID             uuid.UUID `json:"chain_id"`
	ApplianceTemplateID uuid.UUID `json:"appliance_template_id"`
	SequenceNumber      int       `json:"sequence_number"`
	TenantID            string    `json:"tenant_id"`
}
